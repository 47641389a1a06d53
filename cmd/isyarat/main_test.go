package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	if got := run(t, "version"); strings.TrimSpace(got) != Version {
		t.Errorf("version = %q, want %q", got, Version)
	}
}

func TestLabelsCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	labels := filepath.Join(dir, "labels.txt")
	if err := os.WriteFile(labels, []byte("SAYA\nNAMA\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "isyarat.yaml")
	if err := os.WriteFile(config, []byte("recognition:\n  labels: "+labels+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := run(t, "--config", config, "labels")

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q, want header and two labels", got)
	}
	tests := []struct {
		line  int
		index string
		label string
	}{
		{1, "0", "SAYA"},
		{2, "1", "NAMA"},
	}
	for _, tt := range tests {
		fields := strings.Fields(lines[tt.line])
		if len(fields) != 2 || fields[0] != tt.index || fields[1] != tt.label {
			t.Errorf("line %d = %q, want %s %s", tt.line, lines[tt.line], tt.index, tt.label)
		}
	}
}

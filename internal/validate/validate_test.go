package validate

import (
	"math"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		target     string
		confidence float64
		shape      Shape
		wantOK     bool
		wantReason Reason
	}{
		{"letter exact", "A", "A", 0.9, SingleLetter, true, ExactMatch},
		{"letter case and spaces", " a ", "A", 0.9, SingleLetter, true, ExactMatch},
		{"letter mismatch", "B", "A", 0.9, SingleLetter, false, Mismatch},
		{"letter at threshold", "A", "A", 0.5, SingleLetter, true, ExactMatch},
		{"letter below threshold", "A", "A", 0.4999, SingleLetter, false, ConfidenceTooLow},
		{"letter never fuzzy", "AB", "A", 0.9, SingleLetter, false, Mismatch},
		{"word exact", "saya", "SAYA", 0.4, SingleWord, true, ExactMatch},
		{"word below threshold", "SAYA", "SAYA", 0.39, SingleWord, false, ConfidenceTooLow},
		{"word fuzzy", "SAYAA", "SAYA", 0.6, SingleWord, true, FuzzyMatch},
		{"word mismatch", "NAMA", "SAYA", 0.6, SingleWord, false, Mismatch},
		{"phrase collapses whitespace", "nama   saya", "NAMA SAYA", 0.35, Phrase, true, ExactMatch},
		{"phrase fuzzy", "NAMA SAYAX", "NAMA SAYA", 0.5, Phrase, true, FuzzyMatch},
		{"phrase below threshold", "NAMA SAYA", "NAMA SAYA", 0.34, Phrase, false, ConfidenceTooLow},
		{"empty label word", "", "SAYA", 0.9, SingleWord, false, Mismatch},
		{"both empty", "", "  ", 0.9, SingleWord, true, ExactMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Validate(tt.label, tt.target, tt.confidence, tt.shape)
			if out.IsCorrect != tt.wantOK {
				t.Errorf("IsCorrect = %v, want %v", out.IsCorrect, tt.wantOK)
			}
			if out.Reason != tt.wantReason {
				t.Errorf("Reason = %s, want %s", out.Reason, tt.wantReason)
			}
			if out.Confidence != tt.confidence {
				t.Errorf("Confidence = %f, want %f", out.Confidence, tt.confidence)
			}
		})
	}
}

func TestValidate_SimilarityReported(t *testing.T) {
	out := Validate("SAYAA", "SAYA", 0.9, SingleWord)
	if out.Similarity == nil {
		t.Fatal("expected similarity for a fuzzy decision")
	}
	if math.Abs(*out.Similarity-0.8) > 1e-9 {
		t.Errorf("Similarity = %f, want 0.8", *out.Similarity)
	}

	exact := Validate("SAYA", "SAYA", 0.9, SingleWord)
	if exact.Similarity != nil {
		t.Error("exact matches should not report similarity")
	}

	letter := Validate("B", "A", 0.9, SingleLetter)
	if letter.Similarity != nil {
		t.Error("letters should never compute similarity")
	}
}

func TestValidate_LettersNeverFuzzy(t *testing.T) {
	for c := 'A'; c <= 'Z'; c++ {
		for d := 'A'; d <= 'Z'; d++ {
			out := Validate(string(c), string(d), 1.0, SingleLetter)
			if c == d && out.Reason != ExactMatch {
				t.Errorf("%c vs %c: Reason = %s, want EXACT_MATCH", c, d, out.Reason)
			}
			if c != d && out.Reason != Mismatch {
				t.Errorf("%c vs %c: Reason = %s, want MISMATCH", c, d, out.Reason)
			}
		}
	}
}

func TestSimilarity(t *testing.T) {
	pairs := [][2]string{
		{"SAYA", "SAYA"},
		{"SAYA", "NAMA"},
		{"NAMA SAYA", "NAMA"},
		{"", "X"},
		{"KITTEN", "SITTING"},
	}

	for _, p := range pairs {
		a, b := p[0], p[1]
		if s := Similarity(a, a); s != 1 {
			t.Errorf("Similarity(%q, %q) = %f, want 1", a, a, s)
		}
		if ab, ba := Similarity(a, b), Similarity(b, a); ab != ba {
			t.Errorf("Similarity not symmetric for %q, %q: %f vs %f", a, b, ab, ba)
		}
	}

	if s := Similarity("", "X"); s != 0 {
		t.Errorf(`Similarity("", "X") = %f, want 0`, s)
	}
	if s := Similarity("", ""); s != 1 {
		t.Errorf(`Similarity("", "") = %f, want 1`, s)
	}
	if s := Similarity("KITTEN", "SITTING"); math.Abs(s-(1-3.0/7.0)) > 1e-9 {
		t.Errorf("Similarity(KITTEN, SITTING) = %f, want %f", s, 1-3.0/7.0)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a", "A"},
		{"  nama \t saya\n", "NAMA SAYA"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShape(t *testing.T) {
	for _, s := range []Shape{SingleLetter, SingleWord, Phrase} {
		parsed, err := ParseShape(s.String())
		if err != nil || parsed != s {
			t.Errorf("ParseShape(%q) = %v, %v", s.String(), parsed, err)
		}
	}

	if _, err := ParseShape("sentence"); err == nil {
		t.Error("expected error for unknown shape")
	}

	tests := []struct {
		target string
		want   Shape
	}{
		{"A", SingleLetter},
		{"saya", SingleWord},
		{"nama saya", Phrase},
	}
	for _, tt := range tests {
		if got := ShapeOf(tt.target); got != tt.want {
			t.Errorf("ShapeOf(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}

	if SingleLetter.Threshold() != 0.5 || SingleWord.Threshold() != 0.4 || Phrase.Threshold() != 0.35 {
		t.Error("unexpected confidence thresholds")
	}
}

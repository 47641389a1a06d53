package gesture

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
)

// Labels maps classifier indices to sign names.
type Labels struct {
	names []string
	index map[string]int
}

// NewLabels creates a label table. Names are trimmed and upper-cased; blank
// names are skipped.
func NewLabels(names []string) *Labels {
	l := &Labels{index: make(map[string]int)}
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := l.index[n]; dup {
			continue
		}
		l.index[n] = len(l.names)
		l.names = append(l.names, n)
	}
	return l
}

// DefaultLabels returns the alphabet A..Z.
func DefaultLabels() *Labels {
	names := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		names = append(names, string(c))
	}
	return NewLabels(names)
}

// LoadLabels reads one label per line from path. A missing or empty file
// falls back to DefaultLabels.
func LoadLabels(path string) (*Labels, error) {
	if path == "" {
		return DefaultLabels(), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("Label table %s not found, using A-Z", path)
		return DefaultLabels(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	labels := NewLabels(names)
	if labels.Len() == 0 {
		log.Printf("Label table %s is empty, using A-Z", path)
		return DefaultLabels(), nil
	}

	log.Printf("Loaded %d labels from %s", labels.Len(), path)
	return labels, nil
}

// Name returns the label at index i.
func (l *Labels) Name(i int) (string, bool) {
	if i < 0 || i >= len(l.names) {
		return "", false
	}
	return l.names[i], true
}

// Index returns the index of name.
func (l *Labels) Index(name string) (int, bool) {
	i, ok := l.index[strings.ToUpper(strings.TrimSpace(name))]
	return i, ok
}

// Len returns the number of labels.
func (l *Labels) Len() int {
	return len(l.names)
}

// Names returns a copy of all labels in index order.
func (l *Labels) Names() []string {
	return append([]string(nil), l.names...)
}

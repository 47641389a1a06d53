// Package validate decides whether a recognized label answers a target.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Shape is the kind of target being practised.
type Shape int

const (
	SingleLetter Shape = iota
	SingleWord
	Phrase
)

func (s Shape) String() string {
	switch s {
	case SingleLetter:
		return "letter"
	case SingleWord:
		return "word"
	case Phrase:
		return "phrase"
	default:
		return "unknown"
	}
}

// ParseShape parses the String form of a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "letter":
		return SingleLetter, nil
	case "word":
		return SingleWord, nil
	case "phrase":
		return Phrase, nil
	default:
		return 0, fmt.Errorf("unknown target shape %q", s)
	}
}

// ShapeOf infers the shape of a target: one character is a letter,
// anything containing whitespace is a phrase, otherwise a word.
func ShapeOf(target string) Shape {
	n := Normalize(target)
	switch {
	case utf8.RuneCountInString(n) <= 1:
		return SingleLetter
	case strings.Contains(n, " "):
		return Phrase
	default:
		return SingleWord
	}
}

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Shape) UnmarshalText(b []byte) error {
	parsed, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Threshold returns the minimum confidence accepted for shape.
func (s Shape) Threshold() float64 {
	switch s {
	case SingleWord:
		return WordThreshold
	case Phrase:
		return PhraseThreshold
	default:
		return LetterThreshold
	}
}

// Reason explains an Outcome.
type Reason string

const (
	ExactMatch       Reason = "EXACT_MATCH"
	FuzzyMatch       Reason = "FUZZY_MATCH"
	ConfidenceTooLow Reason = "CONFIDENCE_TOO_LOW"
	Mismatch         Reason = "MISMATCH"
)

// Confidence and similarity thresholds.
const (
	LetterThreshold     = 0.5
	WordThreshold       = 0.4
	PhraseThreshold     = 0.35
	SimilarityThreshold = 0.70
)

// Outcome is the verdict for one recognized label.
type Outcome struct {
	IsCorrect  bool     `json:"isCorrect"`
	Reason     Reason   `json:"reason"`
	Confidence float64  `json:"confidence"`
	Similarity *float64 `json:"similarity,omitempty"`
	Recognized string   `json:"recognized"`
	Target     string   `json:"target"`
}

// Validate decides whether label, recognized with confidence, answers
// target. It has no side effects.
func Validate(label, target string, confidence float64, shape Shape) Outcome {
	got := Normalize(label)
	want := Normalize(target)

	out := Outcome{
		Confidence: confidence,
		Recognized: got,
		Target:     want,
	}

	if confidence < shape.Threshold() {
		out.Reason = ConfidenceTooLow
		return out
	}

	if got == want {
		out.IsCorrect = true
		out.Reason = ExactMatch
		return out
	}

	// Letters never fuzzy-match
	if shape == SingleLetter {
		out.Reason = Mismatch
		return out
	}

	sim := Similarity(got, want)
	out.Similarity = &sim
	if sim >= SimilarityThreshold {
		out.IsCorrect = true
		out.Reason = FuzzyMatch
		return out
	}

	out.Reason = Mismatch
	return out
}

// Normalize trims s, upper-cases it and collapses whitespace runs to a
// single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Similarity returns 1 - editDistance/maxLen over runes. Equal strings score
// 1; otherwise an empty side scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

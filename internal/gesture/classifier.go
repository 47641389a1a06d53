// Package gesture scores hand poses against trained sign templates.
package gesture

import (
	"errors"
	"sort"
	"sync"

	"github.com/ayusman/isyarat/internal/detector"
)

// TopK is the number of ranked scores a classification returns.
const TopK = 5

// DefaultTolerance is the maximum summed landmark distance for a template
// to be considered at all.
const DefaultTolerance = 4.0

// ErrNoTemplates is returned by Ready when nothing has been trained.
var ErrNoTemplates = errors.New("no sign templates loaded")

// Score is one ranked classification entry. Index refers to the label table.
type Score struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Classifier scores a pose vector against a closed label set.
type Classifier interface {
	// Classify returns up to TopK scores, best first. An empty pose yields
	// no scores.
	Classify(pose detector.PoseVector) ([]Score, error)

	// Ready reports whether the classifier can be used.
	Ready() error
}

// Template is a trained sign: normalized landmarks for each hand it uses.
type Template struct {
	ID        string
	Label     string
	Index     int
	Hands     []detector.HandLandmarks
	Tolerance float64
}

// NewTemplate builds a template from a pose, normalizing every hand present.
func NewTemplate(id, label string, index int, pose detector.PoseVector, tolerance float64) *Template {
	t := &Template{
		ID:        id,
		Label:     label,
		Index:     index,
		Tolerance: tolerance,
	}
	for i := 0; i < detector.MaxHands; i++ {
		hand, ok := pose.Hand(i)
		if !ok {
			continue
		}
		t.Hands = append(t.Hands, *hand.Normalize())
	}
	return t
}

// TemplateClassifier scores poses by distance to the nearest template of
// each label.
type TemplateClassifier struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateClassifier creates an empty classifier.
func NewTemplateClassifier() *TemplateClassifier {
	return &TemplateClassifier{}
}

// AddTemplate adds a template to the classifier.
func (c *TemplateClassifier) AddTemplate(t *Template) {
	if t == nil || len(t.Hands) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (c *TemplateClassifier) RemoveTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// Replace swaps the whole template set.
func (c *TemplateClassifier) Replace(templates []*Template) {
	kept := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil && len(t.Hands) > 0 {
			kept = append(kept, t)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = kept
}

// Len returns the number of templates.
func (c *TemplateClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Ready returns ErrNoTemplates until at least one template is loaded.
func (c *TemplateClassifier) Ready() error {
	if c.Len() == 0 {
		return ErrNoTemplates
	}
	return nil
}

// Classify normalizes the hands in pose and compares them with every
// template using the same number of hands. Each label keeps its best score
// 1/(1+distance); templates beyond their tolerance are skipped.
func (c *TemplateClassifier) Classify(pose detector.PoseVector) ([]Score, error) {
	var input []detector.HandLandmarks
	for i := 0; i < detector.MaxHands; i++ {
		hand, ok := pose.Hand(i)
		if !ok {
			continue
		}
		input = append(input, *hand.Normalize())
	}
	if len(input) == 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.templates) == 0 {
		return nil, ErrNoTemplates
	}

	best := make(map[int]float64)
	for _, t := range c.templates {
		if len(t.Hands) != len(input) {
			continue
		}

		var distance float64
		for i := range input {
			distance += input[i].Distance(&t.Hands[i])
		}
		if distance > t.Tolerance {
			continue
		}

		score := 1.0 / (1.0 + distance)
		if score > best[t.Index] {
			best[t.Index] = score
		}
	}

	scores := make([]Score, 0, len(best))
	for idx, s := range best {
		scores = append(scores, Score{Index: idx, Score: s})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].Index < scores[j].Index
		}
		return scores[i].Score > scores[j].Score
	})
	if len(scores) > TopK {
		scores = scores[:TopK]
	}

	return scores, nil
}

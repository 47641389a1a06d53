// Package quiz holds the practice question banks and the level order used to
// unlock them.
package quiz

import (
	"fmt"
	"math/rand/v2"

	"github.com/ayusman/isyarat/internal/validate"
)

// Speed is how long a question is shown in timed recognition quizzes.
type Speed string

const (
	Slow   Speed = "slow"
	Medium Speed = "medium"
	Fast   Speed = "fast"
)

// Level is one practice sub-level such as "2.1".
type Level struct {
	ID    string         `json:"id"`
	Main  int            `json:"main"`
	Title string         `json:"title"`
	Shape validate.Shape `json:"shape"`
	Speed Speed          `json:"speed"`
	// DisplayMs is how long each question stays on screen.
	DisplayMs int `json:"displayMs"`
	// Count is the number of questions asked.
	Count int `json:"count"`

	pool    []string
	shuffle bool
}

// Question is one target to sign.
type Question struct {
	ID     string         `json:"id"`
	Number int            `json:"number"`
	Target string         `json:"target"`
	Shape  validate.Shape `json:"shape"`
}

func alphabet(last rune) []string {
	var letters []string
	for c := 'A'; c <= last; c++ {
		letters = append(letters, string(c))
	}
	return letters
}

var levels = []Level{
	{ID: "1.1", Main: 1, Title: "Letters", Shape: validate.SingleLetter, Speed: Slow, DisplayMs: 5000, Count: 10,
		pool: alphabet('J')},
	{ID: "1.2", Main: 1, Title: "Letters", Shape: validate.SingleLetter, Speed: Medium, DisplayMs: 3000, Count: 12,
		pool: alphabet('P'), shuffle: true},
	{ID: "1.3", Main: 1, Title: "Letters", Shape: validate.SingleLetter, Speed: Fast, DisplayMs: 1500, Count: 15,
		pool: alphabet('Z'), shuffle: true},

	{ID: "2.1", Main: 2, Title: "Words", Shape: validate.SingleWord, Speed: Slow, DisplayMs: 5000, Count: 8,
		pool: []string{"SAYA", "NAMA", "BUKU", "MEJA", "KAKI", "MATA", "TOPI", "BAJU"}},
	{ID: "2.2", Main: 2, Title: "Words", Shape: validate.SingleWord, Speed: Medium, DisplayMs: 3000, Count: 10,
		pool: []string{"RUMAH", "MAKAN", "MINUM", "KERJA", "TEMAN", "BAIK", "BESAR", "KECIL", "MALAM", "SIANG"}},
	{ID: "2.3", Main: 2, Title: "Words", Shape: validate.SingleWord, Speed: Fast, DisplayMs: 1500, Count: 12,
		pool: []string{"BELAJAR", "SEKOLAH", "SENANG", "SEDIH", "GEMBIRA", "KELUARGA",
			"BERSAMA", "DATANG", "PULANG", "TENANG", "MARAH", "SAYANG"}},

	{ID: "3.1", Main: 3, Title: "Phrases", Shape: validate.Phrase, Speed: Slow, DisplayMs: 5000, Count: 6,
		pool: []string{"NAMA SAYA", "SAYA BAIK", "BUKU INI", "AKU MAKAN", "TEMAN BAIK", "RUMAH BESAR"}},
	{ID: "3.2", Main: 3, Title: "Phrases", Shape: validate.Phrase, Speed: Medium, DisplayMs: 3000, Count: 8,
		pool: []string{"SAYA BELAJAR", "NAMA TEMAN", "PERGI SEKOLAH", "PULANG RUMAH",
			"MAKAN SIANG", "KERJA KERAS", "BANGUN PAGI", "TIDUR MALAM"}},
	{ID: "3.3", Main: 3, Title: "Phrases", Shape: validate.Phrase, Speed: Fast, DisplayMs: 1500, Count: 10,
		pool: []string{"BELAJAR BERSAMA", "KELUARGA BAHAGIA", "SENANG BERTEMU", "SEKOLAH FAVORIT",
			"SAHABAT SEJATI", "BERBAGI CERITA", "SEMANGAT BELAJAR", "GEMBIRA SELALU",
			"DATANG BERSAMA", "PULANG SENANG"}},
}

// performance is the short bank for signing practice: show the target, wait
// for the camera to recognize it.
var performance = map[int][]string{
	1: alphabet('J'),
	2: {"SAYA", "NAMA"},
	3: {"NAMA SAYA"},
}

// Levels returns every level in unlock order.
func Levels() []Level {
	return append([]Level(nil), levels...)
}

// Find returns the level with id.
func Find(id string) (Level, bool) {
	for _, l := range levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// Next returns the level unlocked by completing id. Completing the last
// sub-level of a main level opens the first sub-level of the next one.
func Next(id string) (string, bool) {
	for i, l := range levels {
		if l.ID == id && i+1 < len(levels) {
			return levels[i+1].ID, true
		}
	}
	return "", false
}

// Questions draws the level's questions. Shuffled levels use rng; a nil rng
// keeps bank order.
func (l Level) Questions(rng *rand.Rand) []Question {
	pool := append([]string(nil), l.pool...)
	if l.shuffle && rng != nil {
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	if l.Count < len(pool) {
		pool = pool[:l.Count]
	}
	return questions("q1_"+l.ID, pool, l.Shape)
}

// Performance returns the signing practice questions for main level 1, 2
// or 3.
func Performance(main int) ([]Question, error) {
	bank, ok := performance[main]
	if !ok {
		return nil, fmt.Errorf("no performance level %d", main)
	}
	return questions(fmt.Sprintf("q2_l%d", main), bank, validate.ShapeOf(bank[0])), nil
}

// NewRand returns a deterministic source for Questions.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func questions(prefix string, targets []string, shape validate.Shape) []Question {
	qs := make([]Question, len(targets))
	for i, t := range targets {
		qs[i] = Question{
			ID:     fmt.Sprintf("%s_%d", prefix, i+1),
			Number: i + 1,
			Target: t,
			Shape:  shape,
		}
	}
	return qs
}

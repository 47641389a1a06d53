// Package progress tracks a multi-character target being signed one
// character at a time.
package progress

import (
	"sync"
	"time"

	"github.com/ayusman/isyarat/internal/validate"
)

// Tracker timing and confidence.
const (
	ConfidenceThreshold = 0.4
	SpaceCooldown       = 800 * time.Millisecond
	CharacterCooldown   = 1000 * time.Millisecond
)

// State is the tracker's position in its state machine.
type State int

const (
	AwaitingCharacter State = iota
	Advancing
	Completed
)

func (s State) String() string {
	switch s {
	case AwaitingCharacter:
		return "awaiting"
	case Advancing:
		return "advancing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Verdict classifies what an observation did.
type Verdict string

const (
	Advanced      Verdict = "advanced"
	SkippedSpace  Verdict = "skipped_space"
	InCooldown    Verdict = "cooldown"
	LowConfidence Verdict = "low_confidence"
	WrongLetter   Verdict = "mismatch"
	AlreadyDone   Verdict = "completed"
)

// Step reports the effect of one observation.
type Step struct {
	Verdict   Verdict `json:"verdict"`
	Expected  string  `json:"expected"`
	Cursor    int     `json:"cursor"`
	Length    int     `json:"length"`
	Completed bool    `json:"completed"`
}

// Snapshot is a consistent view of the tracker.
type Snapshot struct {
	Target        string    `json:"target"`
	Cursor        int       `json:"cursor"`
	State         State     `json:"state"`
	CooldownUntil time.Time `json:"cooldownUntil"`
	InFlight      bool      `json:"inFlight"`
}

// Tracker advances a cursor over a normalized target. Cursor and cooldown
// change together under one lock; the cursor never moves backwards. A
// completed tracker is never reset, callers create a new one.
type Tracker struct {
	mu            sync.Mutex
	target        []rune
	cursor        int
	cooldownUntil time.Time
	inFlight      bool
}

// New creates a tracker for target. The target is normalized first.
func New(target string) *Tracker {
	return &Tracker{target: []rune(validate.Normalize(target))}
}

// Observe evaluates a recognition result against the character under the
// cursor at the moment of the call.
func (t *Tracker) Observe(label string, confidence float64, now time.Time) Step {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.doneLocked() {
		return t.stepLocked(AlreadyDone)
	}
	if now.Before(t.cooldownUntil) {
		return t.stepLocked(InCooldown)
	}

	// Spaces are pauses, never compared against a detection
	if t.target[t.cursor] == ' ' {
		t.advanceLocked(now, SpaceCooldown)
		return t.stepLocked(SkippedSpace)
	}

	if confidence < ConfidenceThreshold {
		return t.stepLocked(LowConfidence)
	}

	if validate.Normalize(label) != string(t.target[t.cursor]) {
		return t.stepLocked(WrongLetter)
	}

	t.advanceLocked(now, CharacterCooldown)
	return t.stepLocked(Advanced)
}

// SkipSpace advances past a space under the cursor, if there is one and the
// tracker is not cooling down.
func (t *Tracker) SkipSpace(now time.Time) (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.doneLocked() || now.Before(t.cooldownUntil) || t.target[t.cursor] != ' ' {
		return Step{}, false
	}
	t.advanceLocked(now, SpaceCooldown)
	return t.stepLocked(SkippedSpace), true
}

// Accepting reports whether a new frame may be evaluated at now.
func (t *Tracker) Accepting(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.doneLocked() && !t.inFlight && !now.Before(t.cooldownUntil)
}

// BeginFlight marks a classification in progress. It returns false if one
// already is.
func (t *Tracker) BeginFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return false
	}
	t.inFlight = true
	return true
}

// EndFlight clears the in-flight mark.
func (t *Tracker) EndFlight() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = false
}

// Current returns the character under the cursor, or "" when completed.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.doneLocked() {
		return ""
	}
	return string(t.target[t.cursor])
}

// Completed reports whether every character has been confirmed.
func (t *Tracker) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneLocked()
}

// State returns the state at now.
func (t *Tracker) State(now time.Time) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked(now)
}

// Snapshot returns a consistent copy of the tracker's state at now.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Target:        string(t.target),
		Cursor:        t.cursor,
		State:         t.stateLocked(now),
		CooldownUntil: t.cooldownUntil,
		InFlight:      t.inFlight,
	}
}

func (t *Tracker) stateLocked(now time.Time) State {
	switch {
	case t.doneLocked():
		return Completed
	case now.Before(t.cooldownUntil):
		return Advancing
	default:
		return AwaitingCharacter
	}
}

func (t *Tracker) doneLocked() bool {
	return t.cursor >= len(t.target)
}

func (t *Tracker) advanceLocked(now time.Time, cooldown time.Duration) {
	t.cursor++
	t.cooldownUntil = now.Add(cooldown)
}

func (t *Tracker) stepLocked(v Verdict) Step {
	s := Step{
		Verdict:   v,
		Cursor:    t.cursor,
		Length:    len(t.target),
		Completed: t.doneLocked(),
	}
	if !s.Completed {
		s.Expected = string(t.target[t.cursor])
	}
	return s
}

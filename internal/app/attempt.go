package app

import (
	"github.com/google/uuid"

	"github.com/ayusman/isyarat/internal/progress"
	"github.com/ayusman/isyarat/internal/store"
)

// Attempt converts d into a store record. Skipped spaces are not attempts
// and return false.
func (d Decision) Attempt() (*store.Attempt, bool) {
	var reason string
	switch {
	case d.Validation != nil:
		reason = string(d.Validation.Reason)
	case d.Step != nil:
		if d.Step.Verdict == progress.SkippedSpace {
			return nil, false
		}
		reason = string(d.Step.Verdict)
	}

	return &store.Attempt{
		ID:         uuid.NewString(),
		SessionID:  d.SessionID,
		Target:     d.Target,
		Shape:      d.Shape.String(),
		Label:      d.Result.Label,
		Confidence: d.Result.Confidence,
		LatencyMs:  d.Result.LatencyMs,
		Correct:    d.Correct,
		Reason:     reason,
	}, true
}

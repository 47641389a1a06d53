package detector

import (
	"errors"

	"github.com/ayusman/isyarat/internal/capture"
)

var (
	// ErrEmptyFrame is returned when a frame carries no pixels to analyze.
	ErrEmptyFrame = errors.New("frame has no image data")
	// ErrServiceExited is reported for requests still outstanding when the
	// landmark service stops.
	ErrServiceExited = errors.New("landmark service exited")
	// ErrClosed is returned after the extractor has been closed.
	ErrClosed = errors.New("extractor closed")
)

// Listener receives extraction outcomes. Exactly one of OnResult or OnError
// is called for every request accepted by DetectAsync.
type Listener interface {
	OnResult(id uint64, pose PoseVector)
	OnError(id uint64, err error)
}

// Extractor turns frames into pose vectors asynchronously.
type Extractor interface {
	// SetListener installs the callback target. It must be called before
	// the first DetectAsync.
	SetListener(l Listener)

	// DetectAsync starts extraction for frame under the caller-chosen id.
	// Ownership of frame passes to the extractor, which releases it exactly
	// once whether or not an error is returned. A non-nil error means no
	// callback will follow for id.
	DetectAsync(id uint64, frame *capture.Frame) error

	// Close releases any resources held by the extractor.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// MirrorX flips x coordinates for front-facing cameras.
	MirrorX bool

	// ScriptPath overrides the landmark service script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        MaxHands,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		MirrorX:         true,
	}
}

package capture

import (
	"errors"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// ErrFrameReleased is returned when a frame is closed more than once.
var ErrFrameReleased = errors.New("frame already released")

// Frame is a single camera image travelling through the recognition pipeline.
// Whoever holds a frame owns it and must Close it exactly once.
type Frame struct {
	mat       *gocv.Mat
	timestamp time.Time
	releases  atomic.Int32
}

// NewFrame wraps a Mat. The frame takes ownership of mat; mat may be nil
// for frames that carry no pixels (tests, synthetic sources).
func NewFrame(mat *gocv.Mat) *Frame {
	return &Frame{
		mat:       mat,
		timestamp: time.Now(),
	}
}

// Mat returns the underlying image. It must not be used after Close.
func (f *Frame) Mat() *gocv.Mat {
	return f.mat
}

// Timestamp returns the capture time of the frame.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Close releases the underlying image. Only the first call releases;
// later calls return ErrFrameReleased.
func (f *Frame) Close() error {
	if f.releases.Add(1) > 1 {
		return ErrFrameReleased
	}
	if f.mat != nil {
		return f.mat.Close()
	}
	return nil
}

// Released reports whether Close has been called.
func (f *Frame) Released() bool {
	return f.releases.Load() > 0
}

// Releases returns how many times Close has been called.
func (f *Frame) Releases() int {
	return int(f.releases.Load())
}

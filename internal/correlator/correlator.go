// Package correlator turns the callback-driven landmark extractor into a
// single-owner request/response unit with cancellation and timeout.
package correlator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/isyarat/internal/capture"
	"github.com/ayusman/isyarat/internal/detector"
)

// State is the lifecycle state of a Handle.
type State int

const (
	Pending State = iota
	Resolved
	Cancelled
	Expired
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// ErrCancelled is the outcome error of a handle superseded or cancelled
// before its callback arrived.
var ErrCancelled = errors.New("request cancelled")

// Outcome is the final value of a handle. For Expired handles Pose is the
// all-zero "no hand" vector and Err is nil.
type Outcome struct {
	State State
	Pose  detector.PoseVector
	Err   error
}

// Handle is one submitted extraction request.
type Handle struct {
	id      uint64
	done    chan struct{}
	state   State
	outcome Outcome
}

// ID returns the request identity passed to the extractor.
func (h *Handle) ID() uint64 {
	return h.id
}

// Done is closed once the handle leaves the Pending state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Correlator owns at most one pending extraction request at a time.
type Correlator struct {
	extractor detector.Extractor

	mu      sync.Mutex
	nextID  uint64
	current *Handle

	dropped atomic.Uint64
}

// New creates a Correlator and registers it as the extractor's listener.
func New(extractor detector.Extractor) *Correlator {
	c := &Correlator{extractor: extractor}
	extractor.SetListener(c)
	return c
}

// Submit hands frame to the extractor under a fresh identity. Any handle
// still pending is cancelled first, so its callback will be discarded.
// Frame ownership passes to the extractor.
func (c *Correlator) Submit(frame *capture.Frame) *Handle {
	c.mu.Lock()
	if c.current != nil {
		c.finish(c.current, Outcome{State: Cancelled, Err: ErrCancelled})
	}
	c.nextID++
	h := &Handle{
		id:    c.nextID,
		done:  make(chan struct{}),
		state: Pending,
	}
	c.current = h
	c.mu.Unlock()

	// The lock is not held across the call so a synchronous callback can
	// resolve the handle.
	if err := c.extractor.DetectAsync(h.id, frame); err != nil {
		c.mu.Lock()
		if h.state == Pending {
			c.finish(h, Outcome{State: Resolved, Err: err})
		}
		c.mu.Unlock()
	}

	return h
}

// Await blocks until h resolves, timeout elapses or ctx is done. On timeout
// the handle is expired and an all-zero pose is returned. On ctx done the
// handle is cancelled.
func (c *Correlator) Await(ctx context.Context, h *Handle, timeout time.Duration) Outcome {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		c.settle(h, Outcome{State: Expired})
	case <-ctx.Done():
		c.settle(h, Outcome{State: Cancelled, Err: ErrCancelled})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return h.outcome
}

// Cancel cancels the pending handle, if any.
func (c *Correlator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.finish(c.current, Outcome{State: Cancelled, Err: ErrCancelled})
	}
}

// Pending reports whether a request is outstanding.
func (c *Correlator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Dropped returns how many callbacks arrived for handles that were no
// longer pending.
func (c *Correlator) Dropped() uint64 {
	return c.dropped.Load()
}

// OnResult implements detector.Listener.
func (c *Correlator) OnResult(id uint64, pose detector.PoseVector) {
	c.resolve(id, Outcome{State: Resolved, Pose: pose})
}

// OnError implements detector.Listener.
func (c *Correlator) OnError(id uint64, err error) {
	c.resolve(id, Outcome{State: Resolved, Err: err})
}

func (c *Correlator) resolve(id uint64, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.id != id {
		c.dropped.Add(1)
		return
	}
	c.finish(c.current, o)
}

func (c *Correlator) settle(h *Handle, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.state == Pending {
		c.finish(h, o)
	}
}

// finish must be called with c.mu held and h pending.
func (c *Correlator) finish(h *Handle, o Outcome) {
	h.state = o.State
	h.outcome = o
	close(h.done)
	if c.current == h {
		c.current = nil
	}
}

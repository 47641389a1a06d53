package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// recordingCamera remembers every frame it hands out.
type recordingCamera struct {
	*MockCamera
	mu     sync.Mutex
	frames []*Frame
}

func (c *recordingCamera) ReadFrame() (*Frame, error) {
	f, err := c.MockCamera.ReadFrame()
	if err == nil {
		c.mu.Lock()
		c.frames = append(c.frames, f)
		c.mu.Unlock()
	}
	return f, err
}

func (c *recordingCamera) all() []*Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Frame(nil), c.frames...)
}

func TestSource_ReleasesEveryFrame(t *testing.T) {
	cam := &recordingCamera{MockCamera: NewMockCamera([]*gocv.Mat{nil}, true)}

	var mu sync.Mutex
	delivered := 0
	sink := SinkFunc(func(f *Frame) {
		// Slow consumer so the mailbox has to replace frames
		time.Sleep(300 * time.Millisecond)
		mu.Lock()
		delivered++
		mu.Unlock()
		f.Close()
	})

	src := NewSource(cam, nil, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 1300*time.Millisecond)
	defer cancel()

	if err := src.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	frames := cam.all()
	if len(frames) == 0 {
		t.Fatal("expected the source to read frames")
	}

	for i, f := range frames {
		if f.Releases() != 1 {
			t.Errorf("frame %d released %d times, want 1", i, f.Releases())
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered == 0 {
		t.Error("expected at least one frame to reach the sink")
	}
	if delivered >= len(frames) {
		t.Logf("delivered %d of %d frames; no frames were replaced", delivered, len(frames))
	}

	if cam.IsOpen() {
		t.Error("camera should be closed after Run returns")
	}
}

func TestSource_IdleFPS(t *testing.T) {
	cam := NewMockCamera([]*gocv.Mat{nil}, true)
	src := NewSource(cam, nil, SinkFunc(func(f *Frame) { f.Close() }))

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	if err := src.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if cam.FPS() != IdleFPS {
		t.Errorf("FPS() = %d, want %d without a motion detector", cam.FPS(), IdleFPS)
	}
}

func TestSource_OfferReplacesOldest(t *testing.T) {
	src := NewSource(NewMockCamera(nil, false), nil, SinkFunc(func(f *Frame) { f.Close() }))

	first := NewFrame(nil)
	second := NewFrame(nil)

	src.offer(first)
	src.offer(second)

	if !first.Released() {
		t.Error("replaced frame should be released")
	}
	if second.Released() {
		t.Error("newest frame should still be queued")
	}

	src.drain()
	if !second.Released() {
		t.Error("drain should release the queued frame")
	}
}

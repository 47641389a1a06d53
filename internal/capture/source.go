package capture

import (
	"context"
	"log"
	"time"
)

// Frame rates used by Source.
const (
	// IdleFPS is the capture rate while the scene is still.
	IdleFPS = 5
	// ActiveFPS is the capture rate while the scene is moving.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Sink consumes frames pushed by a Source. Feed takes ownership of the frame
// and must not block.
type Sink interface {
	Feed(frame *Frame)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(frame *Frame)

// Feed calls f(frame).
func (f SinkFunc) Feed(frame *Frame) { f(frame) }

// Source pushes camera frames into a Sink with drop-if-busy backpressure:
// a single-slot mailbox holds only the newest frame and anything it
// replaces is released immediately.
type Source struct {
	camera Camera
	motion *MotionDetector
	sink   Sink
	latest chan *Frame
	now    func() time.Time
}

// NewSource creates a Source reading from camera. motion may be nil, in which
// case the camera stays at IdleFPS.
func NewSource(camera Camera, motion *MotionDetector, sink Sink) *Source {
	return &Source{
		camera: camera,
		motion: motion,
		sink:   sink,
		latest: make(chan *Frame, 1),
		now:    time.Now,
	}
}

// Run opens the camera and pushes frames until ctx is done. Every frame read
// is either delivered to the sink or released.
func (s *Source) Run(ctx context.Context) error {
	if err := s.camera.Open(); err != nil {
		return err
	}
	defer func() {
		if err := s.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()

	s.camera.SetFPS(IdleFPS)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.dispatch(ctx)
	}()

	s.capture(ctx)
	<-done
	s.drain()
	return nil
}

// capture reads frames at the current rate and adjusts the rate from motion.
func (s *Source) capture(ctx context.Context) {
	active := false
	lastMotion := s.now()

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.camera.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		if s.motion != nil {
			moving, _ := s.motion.Detect(frame)
			switch {
			case moving:
				lastMotion = s.now()
				if !active {
					active = true
					s.camera.SetFPS(ActiveFPS)
					ticker.Reset(time.Second / time.Duration(ActiveFPS))
					log.Println("Switched to active capture")
				}
			case active && s.now().Sub(lastMotion) > IdleTimeout:
				active = false
				s.camera.SetFPS(IdleFPS)
				ticker.Reset(time.Second / time.Duration(IdleFPS))
				log.Println("Switched to idle capture")
			}
		}

		s.offer(frame)
	}
}

// offer places frame in the mailbox, releasing any frame it replaces.
func (s *Source) offer(frame *Frame) {
	for {
		select {
		case s.latest <- frame:
			return
		default:
		}
		select {
		case old := <-s.latest:
			old.Close()
		default:
		}
	}
}

func (s *Source) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.latest:
			s.sink.Feed(frame)
		}
	}
}

func (s *Source) drain() {
	for {
		select {
		case frame := <-s.latest:
			frame.Close()
		default:
			return
		}
	}
}

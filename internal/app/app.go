// Package app wires camera capture, landmark extraction and recognition into
// practice sessions.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/isyarat/internal/capture"
	"github.com/ayusman/isyarat/internal/detector"
	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	CameraID     int
	MotionThresh float64
	LabelsPath   string
	Detector     detector.Config
	Registerer   prometheus.Registerer

	Throttle      time.Duration
	Timeout       time.Duration
	FeedbackDelay time.Duration
	WholeWords    bool

	// Camera and Extractor replace the devices opened by default.
	Camera    capture.Camera
	Extractor detector.Extractor
}

// App owns the camera, the extractor and the recognition pipeline.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	preview    *capture.Preview
	extractor  detector.Extractor
	classifier *gesture.TemplateClassifier
	labels     *gesture.Labels
	pipeline   *Pipeline

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an App. It prefers the MediaPipe extractor and falls back to
// a mock extractor that never finds a hand.
func New(config Config) (*App, error) {
	labels, err := gesture.LoadLabels(config.LabelsPath)
	if err != nil {
		return nil, err
	}

	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% of pixels changed
	}

	if config.Detector == (detector.Config{}) {
		config.Detector = detector.DefaultConfig()
	}

	a := &App{
		config:     config,
		camera:     config.Camera,
		motion:     capture.NewMotionDetector(motionThreshold),
		extractor:  config.Extractor,
		classifier: gesture.NewTemplateClassifier(),
		labels:     labels,
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraID)
	}

	if a.extractor == nil {
		if mp, err := detector.NewMediaPipeExtractor(config.Detector); err == nil {
			a.extractor = mp
			log.Println("Using MediaPipe landmark extraction")
		} else {
			log.Printf("MediaPipe not available (%v), using mock extractor", err)
			a.extractor = detector.NewMockExtractor()
		}
	}

	a.pipeline = NewPipeline(PipelineConfig{
		Extractor:     a.extractor,
		Classifier:    a.classifier,
		Labels:        labels,
		Registerer:    config.Registerer,
		Throttle:      config.Throttle,
		Timeout:       config.Timeout,
		FeedbackDelay: config.FeedbackDelay,
		WholeWords:    config.WholeWords,
	})
	a.preview = capture.NewPreview(a.pipeline)

	return a, nil
}

// LoadSigns rebuilds the classifier from the trained signs in the store.
// Signs that are untrained or missing from the label table are skipped.
func (a *App) LoadSigns() error {
	if a.config.Store == nil {
		return nil
	}

	signs, err := a.config.Store.Signs().List()
	if err != nil {
		return err
	}

	templates := make([]*gesture.Template, 0, len(signs))
	for _, s := range signs {
		idx, ok := a.labels.Index(s.Label)
		if !ok {
			log.Printf("Sign %q is not in the label table, skipping", s.Label)
			continue
		}
		hands, err := a.config.Store.Signs().GetLandmarks(s.ID)
		if err != nil {
			log.Printf("Failed to load landmarks for %s: %v", s.Label, err)
			continue
		}
		if len(hands) == 0 {
			continue
		}
		templates = append(templates, &gesture.Template{
			ID:        s.ID,
			Label:     s.Label,
			Index:     idx,
			Hands:     hands,
			Tolerance: s.Tolerance,
		})
	}

	a.classifier.Replace(templates)
	log.Printf("Loaded %d of %d signs from database", len(templates), len(signs))
	return nil
}

// Start opens the camera and begins feeding frames to the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	// Open up front so a missing camera is reported to the caller; the
	// source's own Open is then a no-op.
	if err := a.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	src := capture.NewSource(a.camera, a.motion, a.preview)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := src.Run(ctx); err != nil {
			log.Printf("Capture error: %v", err)
		}
	}()

	a.cancel = cancel
	a.done = done
	log.Println("Capture started")
	return nil
}

// Stop halts capture. Sessions stay registered but receive no frames.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil
	log.Println("Capture stopped")
}

// Close stops capture and releases every resource the App owns.
func (a *App) Close() error {
	a.Stop()
	a.pipeline.Close()
	a.motion.Close()
	return a.extractor.Close()
}

// Running reports whether capture is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Pipeline returns the recognition pipeline.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Preview returns the latest-frame preview.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Classifier returns the template classifier.
func (a *App) Classifier() *gesture.TemplateClassifier {
	return a.classifier
}

// Labels returns the label table.
func (a *App) Labels() *gesture.Labels {
	return a.labels
}

// Extractor returns the landmark extractor.
func (a *App) Extractor() detector.Extractor {
	return a.extractor
}

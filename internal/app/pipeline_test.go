package app

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayusman/isyarat/internal/capture"
	"github.com/ayusman/isyarat/internal/detector"
	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/progress"
	"github.com/ayusman/isyarat/internal/validate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubClassifier returns a single configured score for every pose.
type stubClassifier struct {
	mu     sync.Mutex
	scores []gesture.Score
	err    error
	ready  error
	calls  int
}

func (c *stubClassifier) set(index int, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = []gesture.Score{{Index: index, Score: score}}
}

func (c *stubClassifier) Classify(detector.PoseVector) ([]gesture.Score, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.scores, c.err
}

func (c *stubClassifier) Ready() error {
	return c.ready
}

func (c *stubClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type harness struct {
	p          *Pipeline
	ext        *detector.MockExtractor
	classifier *stubClassifier
	clock      *fakeClock
	decisions  chan Decision
}

func newHarness(t *testing.T, config PipelineConfig) *harness {
	t.Helper()

	h := &harness{
		ext:        detector.NewMockExtractor(),
		classifier: &stubClassifier{},
		clock:      newFakeClock(),
		decisions:  make(chan Decision, 64),
	}
	h.ext.SetHands(detector.LetterBLandmarks())

	config.Extractor = h.ext
	config.Classifier = h.classifier
	config.Now = h.clock.Now
	if config.Timeout == 0 {
		config.Timeout = time.Second
	}
	if config.FeedbackDelay == 0 {
		config.FeedbackDelay = -1
	}

	h.p = NewPipeline(config)
	h.p.OnDecision(func(d Decision) { h.decisions <- d })
	t.Cleanup(func() {
		h.p.Close()
		h.ext.Close()
	})
	return h
}

func (h *harness) feed() *capture.Frame {
	f := capture.NewFrame(nil)
	h.p.Feed(f)
	return f
}

func (h *harness) next(t *testing.T) Decision {
	t.Helper()
	select {
	case d := <-h.decisions:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decision")
		return Decision{}
	}
}

func (h *harness) expectNone(t *testing.T) {
	t.Helper()
	select {
	case d := <-h.decisions:
		t.Fatalf("unexpected decision %+v", d)
	default:
	}
}

func (h *harness) idle() bool {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return !h.p.inFlight
}

func (h *harness) dropped(reason string) float64 {
	return testutil.ToFloat64(h.p.metrics.framesDropped.WithLabelValues(reason))
}

func (h *harness) extractions(outcome string) float64 {
	return testutil.ToFloat64(h.p.metrics.extractions.WithLabelValues(outcome))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func letter(t *testing.T, name string) int {
	t.Helper()
	i, ok := gesture.DefaultLabels().Index(name)
	if !ok {
		t.Fatalf("no label %q", name)
	}
	return i
}

func TestPipeline_Start(t *testing.T) {
	t.Run("classifier not ready", func(t *testing.T) {
		h := newHarness(t, PipelineConfig{})
		h.classifier.ready = gesture.ErrNoTemplates

		_, err := h.p.Start(validate.SingleLetter, "A")
		if !errors.Is(err, ErrClassificationUnavailable) {
			t.Errorf("Start() error = %v, want ErrClassificationUnavailable", err)
		}
		if _, ok := h.p.Session(); ok {
			t.Error("session should not exist after a failed start")
		}
	})

	t.Run("no classifier", func(t *testing.T) {
		p := NewPipeline(PipelineConfig{Extractor: detector.NewMockExtractor()})
		defer p.Close()
		if _, err := p.Start(validate.SingleLetter, "A"); !errors.Is(err, ErrClassificationUnavailable) {
			t.Errorf("Start() error = %v, want ErrClassificationUnavailable", err)
		}
	})

	t.Run("empty target", func(t *testing.T) {
		h := newHarness(t, PipelineConfig{})
		if _, err := h.p.Start(validate.SingleWord, "   "); !errors.Is(err, ErrEmptyTarget) {
			t.Errorf("Start() error = %v, want ErrEmptyTarget", err)
		}
	})

	t.Run("replaces session", func(t *testing.T) {
		h := newHarness(t, PipelineConfig{})
		first, err := h.p.Start(validate.SingleLetter, "a")
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		second, err := h.p.Start(validate.SingleWord, " saya ")
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if first == second {
			t.Error("session IDs should differ")
		}

		info, ok := h.p.Session()
		if !ok || info.ID != second || info.Target != "SAYA" || info.Shape != validate.SingleWord {
			t.Errorf("Session() = %+v, %v", info, ok)
		}
		if info.Progress == nil || info.Progress.Cursor != 0 {
			t.Errorf("word session progress = %+v", info.Progress)
		}
	})

	t.Run("closed", func(t *testing.T) {
		h := newHarness(t, PipelineConfig{})
		h.p.Close()
		if _, err := h.p.Start(validate.SingleLetter, "A"); !errors.Is(err, ErrPipelineClosed) {
			t.Errorf("Start() error = %v, want ErrPipelineClosed", err)
		}
	})
}

func TestPipeline_NoSessionDropsFrames(t *testing.T) {
	h := newHarness(t, PipelineConfig{})

	f := h.feed()
	if f.Releases() != 1 {
		t.Errorf("Releases() = %d, want 1", f.Releases())
	}
	if len(h.ext.Calls()) != 0 {
		t.Error("extractor should not be called without a session")
	}
	if got := h.dropped(dropIdle); got != 1 {
		t.Errorf("idle drops = %v, want 1", got)
	}

	// nil frames are ignored
	h.p.Feed(nil)
	if got := testutil.ToFloat64(h.p.metrics.framesFed); got != 1 {
		t.Errorf("frames fed = %v, want 1", got)
	}
}

func TestPipeline_SingleLetter(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	id, err := h.p.Start(validate.SingleLetter, "a")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Wrong letter first
	h.classifier.set(letter(t, "B"), 0.9)
	h.feed()
	d := h.next(t)
	if d.SessionID != id || d.Correct || d.Completed {
		t.Errorf("decision = %+v, want incorrect", d)
	}
	if d.Validation == nil || d.Validation.Reason != validate.Mismatch {
		t.Errorf("Validation = %+v, want MISMATCH", d.Validation)
	}
	if d.Result.Label != "B" || !d.Detected {
		t.Errorf("Result = %+v, Detected = %v", d.Result, d.Detected)
	}

	h.clock.Advance(600 * time.Millisecond)
	h.classifier.set(letter(t, "A"), 0.9)
	h.feed()
	d = h.next(t)
	if !d.Correct || !d.Completed {
		t.Errorf("decision = %+v, want correct and completed", d)
	}
	if d.Validation == nil || d.Validation.Reason != validate.ExactMatch {
		t.Errorf("Validation = %+v, want EXACT_MATCH", d.Validation)
	}
	if d.Step != nil {
		t.Error("single letters should not report a tracker step")
	}

	// Completed sessions accept nothing more
	h.clock.Advance(time.Second)
	f := h.feed()
	if f.Releases() != 1 || h.dropped(dropIdle) != 1 {
		t.Error("frame after completion should be dropped and released")
	}
	if info, _ := h.p.Session(); !info.Done {
		t.Error("session should report done")
	}
	if got := testutil.ToFloat64(h.p.metrics.decisions.WithLabelValues("true")); got != 1 {
		t.Errorf("correct decisions = %v, want 1", got)
	}
}

func TestPipeline_LowConfidenceIsNotDetected(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.SingleLetter, "A")

	h.classifier.set(letter(t, "A"), 0.1)
	h.feed()
	d := h.next(t)
	if d.Detected {
		t.Error("confidence below the display threshold should not be detected")
	}
	if d.Correct || d.Validation.Reason != validate.ConfidenceTooLow {
		t.Errorf("decision = %+v, want CONFIDENCE_TOO_LOW", d.Validation)
	}
}

func TestPipeline_UnknownIndexYieldsEmptyLabel(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.SingleLetter, "A")

	h.classifier.set(99, 0.9)
	h.feed()
	d := h.next(t)
	if d.Result.Label != "" || d.Result.Confidence != 0 || d.Detected {
		t.Errorf("Result = %+v, want empty label", d.Result)
	}
}

func TestPipeline_Throttle(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.set(letter(t, "B"), 0.9)

	h.feed()
	h.next(t)

	h.clock.Advance(100 * time.Millisecond)
	f := h.feed()
	if f.Releases() != 1 {
		t.Errorf("throttled frame Releases() = %d, want 1", f.Releases())
	}
	if got := h.dropped(dropThrottle); got != 1 {
		t.Errorf("throttle drops = %v, want 1", got)
	}
	if n := len(h.ext.Calls()); n != 1 {
		t.Errorf("extractor calls = %d, want 1", n)
	}

	h.clock.Advance(500 * time.Millisecond)
	h.feed()
	h.next(t)
	if n := len(h.ext.Calls()); n != 2 {
		t.Errorf("extractor calls = %d after the interval, want 2", n)
	}
}

func TestPipeline_BusyDropsFrames(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.ext.SetHold(true)
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.set(letter(t, "A"), 0.9)

	h.feed()
	waitFor(t, "held request", func() bool { return len(h.ext.Held()) == 1 })

	h.clock.Advance(time.Second)
	f := h.feed()
	if f.Releases() != 1 {
		t.Errorf("busy frame Releases() = %d, want 1", f.Releases())
	}
	if got := h.dropped(dropBusy); got != 1 {
		t.Errorf("busy drops = %v, want 1", got)
	}

	h.ext.Resolve(h.ext.Held()[0])
	if d := h.next(t); !d.Correct {
		t.Errorf("decision = %+v, want correct", d)
	}
}

func TestPipeline_TimeoutRecovers(t *testing.T) {
	h := newHarness(t, PipelineConfig{Timeout: 20 * time.Millisecond})
	h.ext.SetHold(true)
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.set(letter(t, "A"), 0.9)

	h.feed()
	waitFor(t, "timeout", func() bool { return h.extractions(outcomeTimeout) == 1 })
	waitFor(t, "idle pipeline", h.idle)
	h.expectNone(t)

	// The late answer is discarded
	h.ext.Resolve(h.ext.Held()[0])
	if got := testutil.ToFloat64(h.p.metrics.staleCallbacks); got != 1 {
		t.Errorf("stale callbacks = %v, want 1", got)
	}
	h.expectNone(t)

	h.ext.SetHold(false)
	h.clock.Advance(time.Second)
	h.feed()
	if d := h.next(t); !d.Correct {
		t.Errorf("decision after timeout = %+v, want correct", d)
	}
}

func TestPipeline_UnusableFrames(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*detector.MockExtractor)
		outcome string
	}{
		{
			name:    "sparse landmarks",
			setup:   func(m *detector.MockExtractor) { m.SetHands(detector.SparseLandmarks()) },
			outcome: outcomeSparse,
		},
		{
			name:    "no hands",
			setup:   func(m *detector.MockExtractor) { m.SetPose(detector.PoseVector{}) },
			outcome: outcomeSparse,
		},
		{
			name:    "extraction error",
			setup:   func(m *detector.MockExtractor) { m.SetError(errors.New("decode failed")) },
			outcome: outcomeFailure,
		},
		{
			name:    "synchronous error",
			setup:   func(m *detector.MockExtractor) { m.SetSyncError(detector.ErrServiceExited) },
			outcome: outcomeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, PipelineConfig{})
			tt.setup(h.ext)
			h.p.Start(validate.SingleLetter, "A")
			h.classifier.set(letter(t, "A"), 0.9)

			f := h.feed()
			waitFor(t, tt.outcome, func() bool { return h.extractions(tt.outcome) == 1 })
			waitFor(t, "idle pipeline", h.idle)

			h.expectNone(t)
			if h.classifier.Calls() != 0 {
				t.Error("classifier should not run on unusable frames")
			}
			if f.Releases() != 1 {
				t.Errorf("Releases() = %d, want 1", f.Releases())
			}
		})
	}
}

func TestPipeline_ClassifierErrorIsNoDetection(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.err = errors.New("model missing")

	h.feed()
	waitFor(t, "unclassified", func() bool { return h.extractions(outcomeUnclassified) == 1 })
	waitFor(t, "idle pipeline", h.idle)
	h.expectNone(t)
}

func TestPipeline_SpellsWord(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.SingleWord, "saya")

	steps := []struct {
		label     string
		verdict   progress.Verdict
		cursor    int
		completed bool
	}{
		{"S", progress.Advanced, 1, false},
		{"B", progress.WrongLetter, 1, false},
		{"A", progress.Advanced, 2, false},
		{"Y", progress.Advanced, 3, false},
		{"A", progress.Advanced, 4, true},
	}

	for i, step := range steps {
		h.classifier.set(letter(t, step.label), 0.8)
		h.feed()
		d := h.next(t)
		if d.Step == nil {
			t.Fatalf("step %d: no tracker step in %+v", i, d)
		}
		if d.Step.Verdict != step.verdict || d.Step.Cursor != step.cursor || d.Completed != step.completed {
			t.Errorf("step %d (%s): got %+v completed=%v", i, step.label, *d.Step, d.Completed)
		}
		if d.Correct != (step.verdict == progress.Advanced) {
			t.Errorf("step %d: Correct = %v", i, d.Correct)
		}

		// A held gesture during the cooldown is ignored
		if step.verdict == progress.Advanced && !step.completed {
			h.clock.Advance(600 * time.Millisecond)
			f := h.feed()
			if f.Releases() != 1 {
				t.Errorf("step %d: cooldown frame not released", i)
			}
			h.clock.Advance(500 * time.Millisecond)
		} else {
			h.clock.Advance(600 * time.Millisecond)
		}
	}

	if got := h.dropped(dropCooldown); got != 3 {
		t.Errorf("cooldown drops = %v, want 3", got)
	}
	if n := len(h.ext.Calls()); n != len(steps) {
		t.Errorf("extractor calls = %d, want %d", n, len(steps))
	}

	h.feed()
	if got := h.dropped(dropIdle); got != 1 {
		t.Errorf("idle drops after completion = %v, want 1", got)
	}
}

func TestPipeline_PhraseSkipsSpace(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.p.Start(validate.Phrase, "ab  c")

	h.classifier.set(letter(t, "A"), 0.9)
	h.feed()
	h.next(t)

	h.clock.Advance(1100 * time.Millisecond)
	h.classifier.set(letter(t, "B"), 0.9)
	h.feed()
	if d := h.next(t); d.Step.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", d.Step.Cursor)
	}

	// The space is skipped without asking the extractor
	h.clock.Advance(1100 * time.Millisecond)
	f := h.feed()
	d := h.next(t)
	if d.Step == nil || d.Step.Verdict != progress.SkippedSpace || d.Step.Cursor != 3 {
		t.Fatalf("decision = %+v, want skipped space", d)
	}
	if f.Releases() != 1 {
		t.Errorf("Releases() = %d, want 1", f.Releases())
	}
	if n := len(h.ext.Calls()); n != 2 {
		t.Errorf("extractor calls = %d, want 2", n)
	}

	// Space cooldown is shorter than the character cooldown
	h.clock.Advance(700 * time.Millisecond)
	h.feed()
	if got := h.dropped(dropCooldown); got != 1 {
		t.Errorf("cooldown drops = %v, want 1", got)
	}

	h.clock.Advance(100 * time.Millisecond)
	h.classifier.set(letter(t, "C"), 0.9)
	h.feed()
	d = h.next(t)
	if !d.Completed || d.Step.Cursor != 4 {
		t.Errorf("decision = %+v, want completed", d)
	}
}

func TestPipeline_WholeWords(t *testing.T) {
	h := newHarness(t, PipelineConfig{
		WholeWords: true,
		Labels:     gesture.NewLabels([]string{"NAMA", "SAYA"}),
	})
	h.p.Start(validate.SingleWord, "saya")

	h.classifier.set(1, 0.6)
	h.feed()
	d := h.next(t)
	if d.Step != nil {
		t.Error("whole-word sessions should not spell")
	}
	if !d.Correct || d.Validation == nil || d.Validation.Reason != validate.ExactMatch {
		t.Errorf("decision = %+v, want exact match", d)
	}
}

func TestPipeline_Spelling(t *testing.T) {
	tests := []struct {
		shape      validate.Shape
		wholeWords bool
		want       bool
	}{
		{validate.SingleLetter, false, false},
		{validate.SingleWord, false, true},
		{validate.Phrase, false, true},
		{validate.SingleLetter, true, false},
		{validate.SingleWord, true, false},
		{validate.Phrase, true, false},
	}
	for _, tt := range tests {
		p := NewPipeline(PipelineConfig{Extractor: detector.NewMockExtractor(), WholeWords: tt.wholeWords})
		if got := p.Spelling(tt.shape); got != tt.want {
			t.Errorf("Spelling(%s) with wholeWords=%v = %v, want %v", tt.shape, tt.wholeWords, got, tt.want)
		}
	}
}

func TestPipeline_FeedbackDelay(t *testing.T) {
	h := newHarness(t, PipelineConfig{FeedbackDelay: 30 * time.Millisecond})
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.set(letter(t, "A"), 0.9)

	start := time.Now()
	h.feed()
	h.next(t)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("correct answer emitted after %v, want at least 30ms", elapsed)
	}
}

func TestPipeline_CancelDiscardsLateResult(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.ext.SetHold(true)
	h.p.Start(validate.SingleLetter, "A")
	h.classifier.set(letter(t, "A"), 0.9)

	h.feed()
	waitFor(t, "held request", func() bool { return len(h.ext.Held()) == 1 })

	h.p.Cancel()
	waitFor(t, "idle pipeline", h.idle)
	h.ext.Resolve(h.ext.Held()[0])
	h.expectNone(t)

	if _, ok := h.p.Session(); ok {
		t.Error("session should be gone after Cancel")
	}
	if got := h.extractions(outcomeCancelled); got != 1 {
		t.Errorf("cancelled extractions = %v, want 1", got)
	}

	h.clock.Advance(time.Second)
	f := h.feed()
	if f.Releases() != 1 {
		t.Errorf("Releases() = %d after cancel, want 1", f.Releases())
	}
}

func TestPipeline_ReleasesEveryFrame(t *testing.T) {
	h := newHarness(t, PipelineConfig{})
	h.ext.SetDelay(time.Millisecond)
	h.p.OnDecision(func(Decision) {})
	h.p.Start(validate.SingleWord, "SAYA")
	h.classifier.set(letter(t, "S"), 0.9)

	frames := make([]*capture.Frame, 200)
	for i := range frames {
		frames[i] = capture.NewFrame(nil)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(frames); i += 4 {
				h.clock.Advance(50 * time.Millisecond)
				h.p.Feed(frames[i])
			}
		}(w)
	}
	wg.Wait()

	h.p.Close()
	h.ext.Close()

	for i, f := range frames {
		if f.Releases() != 1 {
			t.Errorf("frame %d released %d times", i, f.Releases())
		}
	}
	if got := testutil.ToFloat64(h.p.metrics.framesFed); got != float64(len(frames)) {
		t.Errorf("frames fed = %v, want %d", got, len(frames))
	}
}

func TestPipeline_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, PipelineConfig{Registerer: reg})
	h.feed()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"isyarat_pipeline_frames_fed_total",
		"isyarat_pipeline_frames_dropped_total",
		"isyarat_correlator_stale_callbacks_total",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("metric %s not registered (have %s)", want, joined)
		}
	}
}

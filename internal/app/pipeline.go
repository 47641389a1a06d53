package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/ayusman/isyarat/internal/capture"
	"github.com/ayusman/isyarat/internal/correlator"
	"github.com/ayusman/isyarat/internal/detector"
	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/progress"
	"github.com/ayusman/isyarat/internal/validate"
)

// Pipeline defaults.
const (
	DefaultThrottle      = 500 * time.Millisecond
	DefaultTimeout       = 5000 * time.Millisecond
	DefaultFeedbackDelay = 500 * time.Millisecond

	// MinNonZero is the number of non-zero pose components below which a
	// frame is treated as having no usable hand.
	MinNonZero = 30

	// DisplayThreshold is the confidence from which a result is shown as
	// detected, independent of whether it is correct.
	DisplayThreshold = 0.2
)

// PipelineConfig configures a Pipeline. Zero durations take the defaults.
type PipelineConfig struct {
	Extractor  detector.Extractor
	Classifier gesture.Classifier
	Labels     *gesture.Labels
	Registerer prometheus.Registerer

	Throttle      time.Duration
	Timeout       time.Duration
	FeedbackDelay time.Duration

	// WholeWords validates words and phrases from a single recognition
	// instead of spelling them one character at a time.
	WholeWords bool

	Now func() time.Time
}

// Result is one classified frame.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	LatencyMs  int64   `json:"latencyMs"`
}

// Decision is what the pipeline tells its owner about one frame.
type Decision struct {
	SessionID  string            `json:"sessionId"`
	Target     string            `json:"target"`
	Shape      validate.Shape    `json:"shape"`
	Result     Result            `json:"result"`
	Detected   bool              `json:"detected"`
	Validation *validate.Outcome `json:"validation,omitempty"`
	Step       *progress.Step    `json:"step,omitempty"`
	Correct    bool              `json:"correct"`
	Completed  bool              `json:"completed"`
}

// SessionInfo describes the active practice session.
type SessionInfo struct {
	ID       string             `json:"id"`
	Target   string             `json:"target"`
	Shape    validate.Shape     `json:"shape"`
	Done     bool               `json:"done"`
	Progress *progress.Snapshot `json:"progress,omitempty"`
}

type session struct {
	id      string
	target  string
	shape   validate.Shape
	tracker *progress.Tracker
	limiter *rate.Limiter
	done    bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Pipeline turns camera frames into decisions about a practice target.
// Feed never blocks; at most one frame is being extracted or classified at
// any time and every frame handed to Feed is released exactly once.
type Pipeline struct {
	correlator    *correlator.Correlator
	classifier    gesture.Classifier
	labels        *gesture.Labels
	metrics       *metrics
	throttle      time.Duration
	timeout       time.Duration
	feedbackDelay time.Duration
	wholeWords    bool
	now           func() time.Time

	mu         sync.Mutex
	session    *session
	inFlight   bool
	closed     bool
	onDecision func(Decision)

	// emitMu serializes decision callbacks without holding mu.
	emitMu sync.Mutex
	wg     sync.WaitGroup
}

// NewPipeline creates a pipeline. The pipeline becomes the extractor's
// listener.
func NewPipeline(config PipelineConfig) *Pipeline {
	if config.Throttle <= 0 {
		config.Throttle = DefaultThrottle
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.FeedbackDelay < 0 {
		config.FeedbackDelay = 0
	} else if config.FeedbackDelay == 0 {
		config.FeedbackDelay = DefaultFeedbackDelay
	}
	if config.Labels == nil {
		config.Labels = gesture.DefaultLabels()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	c := correlator.New(config.Extractor)
	return &Pipeline{
		correlator:    c,
		classifier:    config.Classifier,
		labels:        config.Labels,
		metrics:       newMetrics(config.Registerer, func() float64 { return float64(c.Dropped()) }),
		throttle:      config.Throttle,
		timeout:       config.Timeout,
		feedbackDelay: config.FeedbackDelay,
		wholeWords:    config.WholeWords,
		now:           config.Now,
	}
}

// OnDecision sets the callback receiving decisions. It is called from
// pipeline goroutines, one decision at a time.
func (p *Pipeline) OnDecision(cb func(Decision)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDecision = cb
}

// Start begins a session for target, replacing any active one. Words and
// phrases are spelled character by character unless WholeWords is set.
func (p *Pipeline) Start(shape validate.Shape, target string) (string, error) {
	if p.classifier == nil {
		return "", ErrClassificationUnavailable
	}
	if err := p.classifier.Ready(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}

	normalized := validate.Normalize(target)
	if normalized == "" {
		return "", ErrEmptyTarget
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPipelineClosed
	}
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.NewString(),
		target:  normalized,
		shape:   shape,
		limiter: rate.NewLimiter(rate.Every(p.throttle), 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	if p.Spelling(shape) {
		s.tracker = progress.New(normalized)
	}
	p.session = s

	log.Printf("Started %s session %s for %q", shape, s.id, normalized)
	return s.id, nil
}

// Spelling reports whether targets of shape are spelled one letter at a
// time rather than validated as a whole.
func (p *Pipeline) Spelling(shape validate.Shape) bool {
	return shape != validate.SingleLetter && !p.wholeWords
}

// Cancel ends the active session. A pending extraction is cancelled and
// its result, if it still arrives, is discarded.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close cancels the session and waits for in-flight work to finish. Frames
// fed after Close are released immediately.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.stopLocked()
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Session describes the active session, or returns false if there is none.
func (p *Pipeline) Session() (SessionInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return SessionInfo{}, false
	}
	info := SessionInfo{ID: s.id, Target: s.target, Shape: s.shape, Done: s.done}
	if s.tracker != nil {
		snap := s.tracker.Snapshot(p.now())
		info.Progress = &snap
	}
	return info, true
}

// Feed offers a frame to the pipeline. Frames are dropped when no session
// is active, a frame is already being processed, the tracker is cooling
// down or the throttle interval has not elapsed.
func (p *Pipeline) Feed(frame *capture.Frame) {
	if frame == nil {
		return
	}
	p.metrics.framesFed.Inc()
	now := p.now()

	p.mu.Lock()
	s := p.session

	var reason string
	switch {
	case p.closed || s == nil || s.done:
		reason = dropIdle
	case p.inFlight:
		reason = dropBusy
	case s.tracker != nil && !s.tracker.Accepting(now):
		reason = dropCooldown
	case !s.limiter.AllowN(now, 1):
		reason = dropThrottle
	}
	if reason != "" {
		p.mu.Unlock()
		p.drop(frame, reason)
		return
	}

	// A space under the cursor needs no recognition.
	if s.tracker != nil {
		if step, ok := s.tracker.SkipSpace(now); ok {
			if step.Completed {
				s.done = true
			}
			p.mu.Unlock()
			frame.Close()
			p.emit(s, Decision{
				SessionID: s.id,
				Target:    s.target,
				Shape:     s.shape,
				Step:      &step,
				Correct:   true,
				Completed: step.Completed,
			})
			return
		}
		s.tracker.BeginFlight()
	}

	p.inFlight = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.process(s, frame)
}

func (p *Pipeline) drop(frame *capture.Frame, reason string) {
	frame.Close()
	p.metrics.framesDropped.WithLabelValues(reason).Inc()
}

// stopLocked must be called with p.mu held.
func (p *Pipeline) stopLocked() {
	if s := p.session; s != nil {
		s.done = true
		s.cancel()
		p.session = nil
		log.Printf("Stopped session %s", s.id)
	}
	p.correlator.Cancel()
}

func (p *Pipeline) process(s *session, frame *capture.Frame) {
	defer p.wg.Done()

	start := p.now()
	h := p.correlator.Submit(frame)
	out := p.correlator.Await(s.ctx, h, p.timeout)

	res, err := p.recognize(out, start)
	if err != nil {
		switch {
		case errors.Is(err, correlator.ErrCancelled):
		case errors.Is(err, ErrInsufficientLandmarks):
		default:
			log.Printf("Session %s: %v", s.id, err)
		}
		p.endFlight(s)
		return
	}

	p.decide(s, res)
}

// recognize turns an extraction outcome into a classified result.
func (p *Pipeline) recognize(out correlator.Outcome, start time.Time) (Result, error) {
	switch {
	case out.State == correlator.Cancelled:
		p.metrics.extractions.WithLabelValues(outcomeCancelled).Inc()
		return Result{}, correlator.ErrCancelled
	case out.State == correlator.Expired:
		p.metrics.extractions.WithLabelValues(outcomeTimeout).Inc()
		return Result{}, fmt.Errorf("%w after %v", ErrExtractionTimeout, p.timeout)
	case out.Err != nil:
		p.metrics.extractions.WithLabelValues(outcomeFailure).Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailure, out.Err)
	}

	pose := out.Pose
	if pose.NonZero() < MinNonZero {
		p.metrics.extractions.WithLabelValues(outcomeSparse).Inc()
		return Result{}, ErrInsufficientLandmarks
	}

	scores, err := p.classifier.Classify(pose)
	if err != nil {
		p.metrics.extractions.WithLabelValues(outcomeUnclassified).Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	p.metrics.extractions.WithLabelValues(outcomeResolved).Inc()

	elapsed := p.now().Sub(start)
	p.metrics.latency.Observe(elapsed.Seconds())

	res := Result{LatencyMs: elapsed.Milliseconds()}
	if len(scores) > 0 {
		if name, ok := p.labels.Name(scores[0].Index); ok {
			res.Label = name
			res.Confidence = scores[0].Score
		}
	}
	return res, nil
}

// decide evaluates res against the session and emits the decision.
func (p *Pipeline) decide(s *session, res Result) {
	p.mu.Lock()
	if p.session != s || s.done {
		p.mu.Unlock()
		p.endFlight(s)
		return
	}

	d := Decision{
		SessionID: s.id,
		Target:    s.target,
		Shape:     s.shape,
		Result:    res,
		Detected:  res.Label != "" && res.Confidence >= DisplayThreshold,
	}

	if s.tracker != nil {
		step := s.tracker.Observe(res.Label, res.Confidence, p.now())
		d.Step = &step
		d.Correct = step.Verdict == progress.Advanced || step.Verdict == progress.SkippedSpace
		d.Completed = step.Completed
	} else {
		v := validate.Validate(res.Label, s.target, res.Confidence, s.shape)
		d.Validation = &v
		d.Correct = v.IsCorrect
		d.Completed = v.IsCorrect
	}
	if d.Completed {
		s.done = true
	}
	p.mu.Unlock()
	p.endFlight(s)

	// Correct single-shot answers stay on screen briefly before they count.
	if d.Completed && s.tracker == nil && p.feedbackDelay > 0 {
		timer := time.NewTimer(p.feedbackDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			return
		}
	}

	p.emit(s, d)
}

func (p *Pipeline) endFlight(s *session) {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
	if s.tracker != nil {
		s.tracker.EndFlight()
	}
}

// emit delivers d if s is still the active session.
func (p *Pipeline) emit(s *session, d Decision) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	cb := p.onDecision
	current := p.session == s && !p.closed
	p.mu.Unlock()

	if !current {
		return
	}
	p.metrics.decisions.WithLabelValues(boolLabel(d.Correct)).Inc()
	if cb != nil {
		cb(d)
	}
}

package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Frame drop reasons.
const (
	dropIdle     = "idle"
	dropBusy     = "busy"
	dropCooldown = "cooldown"
	dropThrottle = "throttle"
)

// Extraction outcomes.
const (
	outcomeResolved     = "resolved"
	outcomeTimeout      = "timeout"
	outcomeFailure      = "failure"
	outcomeSparse       = "insufficient"
	outcomeCancelled    = "cancelled"
	outcomeUnclassified = "unclassified"
)

type metrics struct {
	framesFed      prometheus.Counter
	framesDropped  *prometheus.CounterVec
	extractions    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	latency        prometheus.Histogram
	staleCallbacks prometheus.CounterFunc
}

func newMetrics(reg prometheus.Registerer, stale func() float64) *metrics {
	m := &metrics{
		framesFed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isyarat",
			Subsystem: "pipeline",
			Name:      "frames_fed_total",
			Help:      "Frames handed to the recognition pipeline.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isyarat",
			Subsystem: "pipeline",
			Name:      "frames_dropped_total",
			Help:      "Frames released without extraction, by reason.",
		}, []string{"reason"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isyarat",
			Subsystem: "pipeline",
			Name:      "extractions_total",
			Help:      "Landmark extraction round-trips, by outcome.",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isyarat",
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Decisions emitted, by correctness.",
		}, []string{"correct"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isyarat",
			Subsystem: "pipeline",
			Name:      "recognition_latency_seconds",
			Help:      "Time from submission to classified result.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 5},
		}),
		staleCallbacks: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "isyarat",
			Subsystem: "correlator",
			Name:      "stale_callbacks_total",
			Help:      "Extractor callbacks discarded because their request was no longer pending.",
		}, stale),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesFed,
			m.framesDropped,
			m.extractions,
			m.decisions,
			m.latency,
			m.staleCallbacks,
		)
	}

	return m
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

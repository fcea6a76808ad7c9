package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quiz"

// Metrics holds Prometheus metrics for quiz generation and quiz sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QuizzesGenerated   *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	SessionsStarted    prometheus.Counter
	SessionsCompleted  *prometheus.CounterVec
	SessionsAbandoned  prometheus.Counter
	SessionsActive     prometheus.Gauge
	ScorePercentage    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuizzesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "quizzes_total",
				Help:      "Total number of generated quizzes",
			},
			[]string{"method"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "failures_total",
				Help:      "Generation requests that did not produce a quiz",
			},
			[]string{"kind"}, // validation, configuration, generation, storage
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Time spent generating a quiz",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Quiz sessions started",
		}),
		SessionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "completed_total",
				Help:      "Quiz sessions completed, by trigger",
			},
			[]string{"trigger"},
		),
		SessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "abandoned_total",
			Help:      "Quiz sessions discarded before completion",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently held by the service",
		}),
		ScorePercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "score_percentage",
			Help:      "Distribution of final scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.QuizzesGenerated,
			m.GenerationFailures,
			m.GenerationDuration,
			m.SessionsStarted,
			m.SessionsCompleted,
			m.SessionsAbandoned,
			m.SessionsActive,
			m.ScorePercentage,
		)
	}
	return m
}

func (m *Metrics) QuizGenerated(method string, took time.Duration) {
	if m == nil {
		return
	}
	m.QuizzesGenerated.WithLabelValues(method).Inc()
	m.GenerationDuration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) GenerationFailed(kind string) {
	if m == nil {
		return
	}
	m.GenerationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionCompleted(trigger string, percentage int) {
	if m == nil {
		return
	}
	m.SessionsCompleted.WithLabelValues(trigger).Inc()
	m.ScorePercentage.Observe(float64(percentage))
}

// SessionDiscarded records a session leaving the service; abandoned is true
// when it was still in progress.
func (m *Metrics) SessionDiscarded(abandoned bool) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	if abandoned {
		m.SessionsAbandoned.Inc()
	}
}

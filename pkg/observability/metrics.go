package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK labels successful operations. Failures are labelled with their error kind.
const OutcomeOK = "ok"

// Metrics groups the bridge collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	initializations *prometheus.CounterVec
	initDuration    prometheus.Histogram
	evaluations     *prometheus.CounterVec
	evalDuration    *prometheus.HistogramVec
	inflight        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		initializations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorebridge_initializations_total",
				Help: "Worker provisioning attempts by outcome.",
			},
			[]string{"outcome"},
		),
		initDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scorebridge_initialization_duration_seconds",
				Help:    "Duration of worker provisioning.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorebridge_evaluations_total",
				Help: "Scoring evaluations by outcome.",
			},
			[]string{"outcome"},
		),
		evalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scorebridge_evaluation_duration_seconds",
				Help:    "Duration of scoring evaluations, queue wait included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scorebridge_evaluations_inflight",
				Help: "Evaluations currently queued or running.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.initializations, m.initDuration, m.evaluations, m.evalDuration, m.inflight)
	}
	return m
}

// ObserveInitialization records one provisioning attempt.
func (m *Metrics) ObserveInitialization(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.initializations.WithLabelValues(outcome).Inc()
	m.initDuration.Observe(d.Seconds())
}

// ObserveEvaluation records one finished evaluation.
func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
	m.evalDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// EvaluationStarted increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) EvaluationStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}

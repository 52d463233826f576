// Package metrics holds the prometheus collectors for the intake service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "intake"

// Metrics groups the service collectors.
type Metrics struct {
	completionLatency *prometheus.HistogramVec
	turns             *prometheus.CounterVec
	stageEntries      *prometheus.CounterVec
	extractionFails   *prometheus.CounterVec
	bookings          prometheus.Counter
	activeTurns       prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion service calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"kind", "status"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Processed turns by stage and outcome",
		}, []string{"stage", "outcome"}), // outcome: ok, upstream_error, busy, error
		stageEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "stage_entries_total",
			Help:      "Stage transitions by target stage",
		}, []string{"stage"}),
		extractionFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "failures_total",
			Help:      "Extraction calls discarded as failed or malformed",
		}, []string{"kind"}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "approved_total",
			Help:      "Approved outreach drafts",
		}),
		activeTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "active_turns",
			Help:      "Turns currently being processed",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.completionLatency, m.turns, m.stageEntries, m.extractionFails, m.bookings, m.activeTurns)
	}
	return m
}

// ObserveCompletion records one completion call.
func (m *Metrics) ObserveCompletion(kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.completionLatency.WithLabelValues(kind, status).Observe(d.Seconds())
}

// TurnProcessed counts a finished turn.
func (m *Metrics) TurnProcessed(stage, outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(stage, outcome).Inc()
}

// StageEntered counts a transition into stage.
func (m *Metrics) StageEntered(stage string) {
	if m == nil {
		return
	}
	m.stageEntries.WithLabelValues(stage).Inc()
}

// ExtractionFailed counts a discarded extraction.
func (m *Metrics) ExtractionFailed(kind string) {
	if m == nil {
		return
	}
	m.extractionFails.WithLabelValues(kind).Inc()
}

// BookingApproved counts an approved draft.
func (m *Metrics) BookingApproved() {
	if m == nil {
		return
	}
	m.bookings.Inc()
}

// TurnStarted marks a turn in flight and returns the func that ends it.
func (m *Metrics) TurnStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activeTurns.Inc()
	return m.activeTurns.Dec
}

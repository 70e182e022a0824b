// Package metric holds Prometheus instrumentation for reasoning runs.
//
// A nil *Metrics is valid and records nothing, so callers that do not care
// about metrics pass nil instead of branching.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels.
const (
	OpClosure = "closure"
	OpAssert  = "assert"
	OpRetract = "retract"
)

// Metrics holds the reasoner's Prometheus collectors.
type Metrics struct {
	runsTotal           *prometheus.CounterVec
	roundsTotal         *prometheus.CounterVec
	runDuration         *prometheus.HistogramVec
	triplesDerived      *prometheus.CounterVec
	justificationsTotal *prometheus.CounterVec
	triplesRetracted    prometheus.Counter
	triplesRederived    prometheus.Counter
	justifications      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Returns nil if reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total closure, assert and retract runs",
		}, []string{"operation", "result"}),

		roundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "engine",
			Name:      "rounds_total",
			Help:      "Total semi-naive rounds evaluated",
		}, []string{"operation"}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "entail",
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Time spent per run",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),

		triplesDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "rule",
			Name:      "triples_derived_total",
			Help:      "New triples produced per rule",
		}, []string{"rule"}),

		justificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "rule",
			Name:      "justifications_total",
			Help:      "Justifications recorded per rule",
		}, []string{"rule"}),

		triplesRetracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "tms",
			Name:      "triples_retracted_total",
			Help:      "Triples removed from the closure by retraction",
		}),

		triplesRederived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "entail",
			Subsystem: "tms",
			Name:      "triples_rederived_total",
			Help:      "Over-deleted triples restored by rederivation",
		}),

		justifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "entail",
			Subsystem: "tms",
			Name:      "justifications",
			Help:      "Justifications currently recorded",
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.roundsTotal,
		m.runDuration,
		m.triplesDerived,
		m.justificationsTotal,
		m.triplesRetracted,
		m.triplesRederived,
		m.justifications,
	)
	return m
}

// RunFinished records one engine run.
func (m *Metrics) RunFinished(op string, rounds int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runsTotal.WithLabelValues(op, result).Inc()
	m.roundsTotal.WithLabelValues(op).Add(float64(rounds))
	m.runDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RuleFired records the output of one rule in one round.
func (m *Metrics) RuleFired(rule string, newTriples, justifications int) {
	if m == nil {
		return
	}
	m.triplesDerived.WithLabelValues(rule).Add(float64(newTriples))
	m.justificationsTotal.WithLabelValues(rule).Add(float64(justifications))
}

// Retracted records the outcome of one retraction.
func (m *Metrics) Retracted(removed, rederived int) {
	if m == nil {
		return
	}
	m.triplesRetracted.Add(float64(removed))
	m.triplesRederived.Add(float64(rederived))
}

// SetJustifications sets the current size of the justification index.
func (m *Metrics) SetJustifications(n int) {
	if m == nil {
		return
	}
	m.justifications.Set(float64(n))
}

// Package metrics holds the Prometheus collectors of the rule engine. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "automation"

type Metrics struct {
	ruleRuns        *prometheus.CounterVec
	ruleRunDuration *prometheus.HistogramVec
	steps           *prometheus.CounterVec
	actions         *prometheus.CounterVec
	messages        *prometheus.CounterVec
	continuations   *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}

	m := &Metrics{
		ruleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_runs_total",
			Help:      "Rule runs by how they ended",
		}, []string{"outcome"}),

		ruleRunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_run_duration_seconds",
			Help:      "Time spent walking one rule",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		}, []string{"outcome"}),

		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Steps visited by kind",
		}, []string{"kind"}),

		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "executed_total",
			Help:      "Actions executed by kind and result",
		}, []string{"kind", "result"}),

		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "status_total",
			Help:      "Outbound message status transitions",
		}, []string{"channel", "status"}),

		continuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "continuations_total",
			Help:      "Continuations scheduled and resumed",
		}, []string{"event"}),
	}

	registerer.MustRegister(
		m.ruleRuns,
		m.ruleRunDuration,
		m.steps,
		m.actions,
		m.messages,
		m.continuations,
	)

	return m
}

func (m *Metrics) RuleRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.ruleRuns.WithLabelValues(outcome).Inc()
	m.ruleRunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) Step(kind string) {
	if m == nil {
		return
	}

	m.steps.WithLabelValues(kind).Inc()
}

func (m *Metrics) Action(kind, result string) {
	if m == nil {
		return
	}

	m.actions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Message(channel, status string) {
	if m == nil {
		return
	}

	m.messages.WithLabelValues(channel, status).Inc()
}

// Continuation counts scheduler events: "scheduled", "resumed" or "stale".
func (m *Metrics) Continuation(event string) {
	if m == nil {
		return
	}

	m.continuations.WithLabelValues(event).Inc()
}

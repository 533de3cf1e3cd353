// Package telemetry registers and exposes agentd Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters shared across the action pipeline. A nil
// *Metrics is valid and turns every increment into a no-op, so components
// can be constructed without observability wired up (tests, one-shot CLI).
type Metrics struct {
	actionsParsed   *prometheus.CounterVec
	gateDecisions   *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	actionsExecuted *prometheus.CounterVec
	plansFinished   *prometheus.CounterVec
}

// New registers agentd metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actionsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_actions_parsed_total",
			Help: "Action requests extracted from model text, by detection path (structured, directed, implicit).",
		}, []string{"path"}),
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_gate_decisions_total",
			Help: "Security gate decisions, by risk tier and outcome.",
		}, []string{"tier", "outcome"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_rate_limit_denials_total",
			Help: "Requests denied by the sliding-window rate limiter, by capability class.",
		}, []string{"class"}),
		actionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_actions_executed_total",
			Help: "Executed action requests, by capability and terminal status.",
		}, []string{"capability", "status"}),
		plansFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_plans_finished_total",
			Help: "Task plans reaching a terminal state, by status.",
		}, []string{"status"}),
	}
}

// IncActionsParsed counts one parsed request by detection path.
func (m *Metrics) IncActionsParsed(path string) {
	if m == nil {
		return
	}
	m.actionsParsed.WithLabelValues(path).Inc()
}

// IncGateDecision counts one gate decision.
func (m *Metrics) IncGateDecision(tier, outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(tier, outcome).Inc()
}

// IncRateLimited counts one rate-limit denial.
func (m *Metrics) IncRateLimited(class string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(class).Inc()
}

// IncActionExecuted counts one executed request.
func (m *Metrics) IncActionExecuted(capability, status string) {
	if m == nil {
		return
	}
	m.actionsExecuted.WithLabelValues(capability, status).Inc()
}

// IncPlanFinished counts one terminal plan.
func (m *Metrics) IncPlanFinished(status string) {
	if m == nil {
		return
	}
	m.plansFinished.WithLabelValues(status).Inc()
}

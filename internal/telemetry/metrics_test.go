package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncActionsParsed("structured")
	m.IncActionsParsed("structured")
	m.IncGateDecision("dangerous", "denied")
	m.IncRateLimited("command")
	m.IncActionExecuted("create_file", "success")
	m.IncPlanFinished("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actionsParsed.WithLabelValues("structured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("dangerous", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionsExecuted.WithLabelValues("create_file", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.plansFinished.WithLabelValues("completed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncActionsParsed("structured")
		m.IncGateDecision("safe", "approved")
		m.IncRateLimited("mutation")
		m.IncActionExecuted("run_command", "failed")
		m.IncPlanFinished("aborted")
	})
}

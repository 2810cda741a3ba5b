package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.Nil(t, New(nil))
	assert.NotPanics(t, func() {
		m.RuleRun("completed", time.Millisecond)
		m.Step("action")
		m.Action("send_email", "sent")
		m.Message("email", "sent")
		m.Continuation("scheduled")
	})
}

func TestMetrics_Counts(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RuleRun("completed", time.Millisecond)
	m.RuleRun("completed", time.Millisecond)
	m.RuleRun("failed", time.Millisecond)
	m.Action("send_sms", "failed")
	m.Continuation("scheduled")

	assert.InDelta(t, 2, testutil.ToFloat64(m.ruleRuns.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ruleRuns.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.actions.WithLabelValues("send_sms", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.continuations.WithLabelValues("scheduled")), 0)
}

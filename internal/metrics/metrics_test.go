package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Dispatched(true)
	m.Dispatched(true)
	m.Dispatched(false)
	m.Escalated(true)
	m.Reply("taken")
	m.Tracked(3, 6, 1)
	m.ObserveSweep("dispatch", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatched.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatched.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escalations.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("taken")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tracked.WithLabelValues("pending")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Dispatched(true)
		m.Escalated(false)
		m.Reply("taken")
		m.FollowUp(true)
		m.Tracked(1, 1, 1)
		m.ObserveSweep("timeouts", time.Now())
	})
}

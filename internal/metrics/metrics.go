package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediping"

// Metrics holds the reminder engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	dispatched    *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	replies       *prometheus.CounterVec
	followUps     *prometheus.CounterVec
	tracked       *prometheus.GaugeVec
	sweepDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_dispatched_total",
				Help:      "Reminder instances handed to the messaging transport",
			},
			[]string{"result"},
		),
		escalations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "escalations_total",
				Help:      "Emergency contact notifications after an unanswered reminder",
			},
			[]string{"result"},
		),
		replies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replies_total",
				Help:      "User replies matched to a tracked reminder",
			},
			[]string{"reply"},
		),
		followUps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "followups_total",
				Help:      "Remind-later follow-up sends",
			},
			[]string{"result"},
		),
		tracked: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_entries",
				Help:      "Tracked reminder instances by state",
			},
			[]string{"state"},
		),
		sweepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of scheduler sweeps",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sweep"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}

// Dispatched counts a reminder send attempt.
func (m *Metrics) Dispatched(ok bool) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(result(ok)).Inc()
}

// Escalated counts an emergency contact attempt.
func (m *Metrics) Escalated(ok bool) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(result(ok)).Inc()
}

// Reply counts a recognised reply keyword.
func (m *Metrics) Reply(reply string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(reply).Inc()
}

// FollowUp counts a remind-later send attempt.
func (m *Metrics) FollowUp(ok bool) {
	if m == nil {
		return
	}
	m.followUps.WithLabelValues(result(ok)).Inc()
}

// Tracked publishes the tracker gauges.
func (m *Metrics) Tracked(pending, responded, escalated int) {
	if m == nil {
		return
	}
	m.tracked.WithLabelValues("pending").Set(float64(pending))
	m.tracked.WithLabelValues("responded").Set(float64(responded))
	m.tracked.WithLabelValues("escalated").Set(float64(escalated))
}

// ObserveSweep records how long a sweep took.
func (m *Metrics) ObserveSweep(sweep string, started time.Time) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep).Observe(time.Since(started).Seconds())
}

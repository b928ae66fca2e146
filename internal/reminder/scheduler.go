// Package reminder dispatches due medicine reminders, tracks the replies they
// get, and escalates to the emergency contact when none arrives in time.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pathakanu/mediping/internal/config"
	"github.com/pathakanu/mediping/internal/metrics"
	"github.com/pathakanu/mediping/internal/model"
	"github.com/pathakanu/mediping/internal/timerq"
	"github.com/pathakanu/mediping/internal/tracker"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	kindEscalation = "escalation"
	kindFollowUp   = "follow_up"
)

// DefinitionStore finds the reminder definitions scheduled at a wall-clock minute.
type DefinitionStore interface {
	FindDueDefinitions(ctx context.Context, hhmm string) ([]model.MedicineReminder, error)
}

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Options configures a Scheduler. Zero durations and empty schedules fall
// back to the config package defaults.
type Options struct {
	Store     DefinitionStore
	Reminders Sender
	Emergency Sender
	Log       *logrus.Logger
	Metrics   *metrics.Metrics
	Location  *time.Location
	Now       func() time.Time

	EmergencyWindow time.Duration
	FollowUpDelay   time.Duration
	Retention       time.Duration
	SendTimeout     time.Duration

	DispatchSchedule string
	TimeoutSchedule  string
	CleanupSchedule  string
}

// Scheduler owns the reminder tracker, the delay queue for per-instance
// callbacks, and the cron entries driving the periodic sweeps.
type Scheduler struct {
	store     DefinitionStore
	reminders Sender
	emergency Sender
	log       *logrus.Logger
	metrics   *metrics.Metrics
	loc       *time.Location
	now       func() time.Time

	window      time.Duration
	followUp    time.Duration
	sendTimeout time.Duration

	tracker *tracker.Tracker
	queue   *timerq.Queue
	cron    *cron.Cron

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	escMu      sync.Mutex
	escalating map[string]struct{}
}

// New builds a Scheduler and registers its sweeps. Nothing runs until Start.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("reminder: store is required")
	}
	if opts.Reminders == nil || opts.Emergency == nil {
		return nil, errors.New("reminder: reminder and emergency senders are required")
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
		opts.Log.SetOutput(io.Discard)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{
		store:       opts.Store,
		reminders:   opts.Reminders,
		emergency:   opts.Emergency,
		log:         opts.Log,
		metrics:     opts.Metrics,
		loc:         opts.Location,
		now:         opts.Now,
		window:      orDefault(opts.EmergencyWindow, config.DefaultEmergencyWindow),
		followUp:    orDefault(opts.FollowUpDelay, config.DefaultFollowUpDelay),
		sendTimeout: orDefault(opts.SendTimeout, config.DefaultSendTimeout),
		escalating:  make(map[string]struct{}),
	}
	s.tracker = tracker.New(s.now, tracker.WithRetention(opts.Retention))
	s.queue = timerq.New(s.now)

	cronLog := cron.PrintfLogger(s.log)
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"dispatch", orDefaultSpec(opts.DispatchSchedule, config.DefaultDispatchSchedule), func() { s.RunDispatch(s.runContext()) }},
		{"timeouts", orDefaultSpec(opts.TimeoutSchedule, config.DefaultTimeoutSchedule), func() { s.CheckResponseTimeouts(s.runContext()) }},
		{"cleanup", orDefaultSpec(opts.CleanupSchedule, config.DefaultCleanupSchedule), func() { s.Cleanup() }},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return nil, fmt.Errorf("reminder: register %s schedule %q: %w", job.name, job.spec, err)
		}
	}
	return s, nil
}

// Start launches the cron sweeps and the delay-queue loop. Calling it on a
// running scheduler only logs a warning.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("reminder scheduler already running")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.queue.Run(runCtx)
	}()
	s.cron.Start()

	s.runCtx, s.cancel, s.done = runCtx, cancel, done
	s.running = true
	s.log.WithFields(logrus.Fields{
		"timezone":         s.loc.String(),
		"emergency_window": s.window.String(),
	}).Info("reminder scheduler started")
}

// Stop halts the sweeps, waits for in-flight jobs, and stops the delay-queue
// loop. Pending delay-queue items are kept and fire after the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.log.Warn("reminder scheduler is not running")
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	cancel()
	<-done
	s.log.Info("reminder scheduler stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cleanup evicts tracked instances older than the retention period.
func (s *Scheduler) Cleanup() int {
	evicted := s.tracker.Cleanup()
	if evicted > 0 {
		s.log.WithField("evicted", evicted).Info("old tracked reminders cleaned up")
	}
	s.publishTracked()
	return evicted
}

// TrackingStatus summarises the tracked instances.
func (s *Scheduler) TrackingStatus() tracker.Stats {
	return s.tracker.Stats()
}

// AllActive lists every instance still awaiting a reply.
func (s *Scheduler) AllActive() []tracker.Entry {
	return s.tracker.AllActive()
}

// UserReminders lists the tracked instances dispatched to phone.
func (s *Scheduler) UserReminders(phone string) []tracker.Entry {
	return s.tracker.UserReminders(phone)
}

// HasActiveReminder reports whether phone has an instance awaiting a reply.
func (s *Scheduler) HasActiveReminder(phone string) bool {
	_, ok := s.tracker.GetActiveReminder(phone)
	return ok
}

// PendingTimers lists the escalation and follow-up callbacks not yet fired.
func (s *Scheduler) PendingTimers() []timerq.Item {
	return s.queue.Pending()
}

// runContext returns the context of the current run, or Background when the
// scheduler is stopped.
func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil || !s.running {
		return context.Background()
	}
	return s.runCtx
}

func (s *Scheduler) send(ctx context.Context, sender Sender, to, body string) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return sender.Send(ctx, to, body)
}

func (s *Scheduler) publishTracked() {
	if s.metrics == nil {
		return
	}
	stats := s.tracker.Stats()
	s.metrics.Tracked(stats.Pending, stats.Responded, stats.EmergencyContacted)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func orDefaultSpec(spec, def string) string {
	if spec == "" {
		return def
	}
	return spec
}

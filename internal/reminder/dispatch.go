package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/mediping/internal/model"
	"github.com/pathakanu/mediping/internal/recurrence"
	"github.com/sirupsen/logrus"
)

// DispatchReport counts what one dispatch sweep did.
type DispatchReport struct {
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// RunDispatch sends every reminder scheduled for the current minute whose
// recurrence policy makes it due today. A failure on one definition never
// stops the others.
func (s *Scheduler) RunDispatch(ctx context.Context) DispatchReport {
	defer s.metrics.ObserveSweep("dispatch", time.Now())

	var report DispatchReport
	now := s.now().In(s.loc)
	hhmm := now.Format("15:04")

	defs, err := s.store.FindDueDefinitions(ctx, hhmm)
	if err != nil {
		s.log.WithError(err).WithField("time", hhmm).Error("load due reminders")
		return report
	}

	for i := range defs {
		s.dispatchOne(ctx, &defs[i], now, &report)
	}
	s.publishTracked()

	if report.Considered > 0 {
		s.log.WithFields(logrus.Fields{
			"time":       hhmm,
			"considered": report.Considered,
			"sent":       report.Sent,
			"failed":     report.Failed,
			"skipped":    report.Skipped,
		}).Info("reminder dispatch finished")
	}
	return report
}

func (s *Scheduler) dispatchOne(ctx context.Context, def *model.MedicineReminder, now time.Time, report *DispatchReport) {
	report.Considered++
	fields := logrus.Fields{"reminder_id": def.ID, "user_id": def.UserID}
	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			s.metrics.Dispatched(false)
			s.log.WithFields(fields).Errorf("reminder dispatch panic: %v", r)
		}
	}()

	if !recurrence.IsDue(def, now) {
		report.Skipped++
		return
	}
	if strings.TrimSpace(def.User.PhoneNumber) == "" {
		report.Failed++
		s.metrics.Dispatched(false)
		s.log.WithFields(fields).Warn("reminder owner has no phone number")
		return
	}

	body := s.renderReminder(def.User.UserName, def.Medicine, def.Time, def.Notes)
	if err := s.send(ctx, s.reminders, def.User.PhoneNumber, body); err != nil {
		report.Failed++
		s.metrics.Dispatched(false)
		s.log.WithFields(fields).WithError(err).Error("send reminder")
		return
	}
	s.metrics.Dispatched(true)

	entry := s.tracker.AddReminder(def.ID, def.User, *def)
	s.queue.Schedule(entry.SentAt.Add(s.window), kindEscalation, entry.InstanceID, func(ctx context.Context) {
		s.escalate(ctx, entry.InstanceID)
	})
	report.Sent++

	fields["instance_id"] = entry.InstanceID
	s.log.WithFields(fields).Info("reminder sent")
}

// DueAt returns the definitions a dispatch sweep would send at the given
// instant, without sending or tracking anything.
func DueAt(ctx context.Context, store DefinitionStore, at time.Time) ([]model.MedicineReminder, error) {
	defs, err := store.FindDueDefinitions(ctx, at.Format("15:04"))
	if err != nil {
		return nil, fmt.Errorf("load due reminders: %w", err)
	}
	due := make([]model.MedicineReminder, 0, len(defs))
	for i := range defs {
		if recurrence.IsDue(&defs[i], at) {
			due = append(due, defs[i])
		}
	}
	return due, nil
}

package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// CheckResponseTimeouts escalates every instance whose reply window has
// elapsed without a reply. It returns how many escalations it performed.
func (s *Scheduler) CheckResponseTimeouts(ctx context.Context) int {
	defer s.metrics.ObserveSweep("timeouts", time.Now())

	escalated := 0
	for _, entry := range s.tracker.CheckTimeouts(s.window) {
		if s.escalate(ctx, entry.InstanceID) {
			escalated++
		}
	}
	s.publishTracked()
	return escalated
}

// escalate notifies the emergency contact of an unanswered instance. The
// sweep and the per-instance timer both call it; at most one call per
// instance gets past the claim and the pending check.
func (s *Scheduler) escalate(ctx context.Context, instanceID string) (escalated bool) {
	if !s.claim(instanceID) {
		return false
	}
	defer s.release(instanceID)

	fields := logrus.Fields{"instance_id": instanceID}
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(fields).Errorf("escalation panic: %v", r)
			escalated = false
		}
	}()

	entry, ok := s.tracker.Get(instanceID)
	if !ok || !entry.Pending() {
		return false
	}
	s.queue.CancelKey(kindEscalation, instanceID)

	fields["user_phone"] = entry.UserPhone
	fields["emergency_number"] = entry.EmergencyNumber
	// Once claimed the alert goes out even if Stop cancels ctx; send still
	// bounds it by the send timeout.
	if err := s.send(context.WithoutCancel(ctx), s.emergency, entry.EmergencyNumber, renderEmergency(entry)); err != nil {
		s.metrics.Escalated(false)
		s.log.WithFields(fields).WithError(err).Error("send emergency alert")
	} else {
		s.metrics.Escalated(true)
		s.log.WithFields(fields).Warn("emergency contact notified")
	}

	s.tracker.MarkEmergencyContacted(instanceID)
	return true
}

func (s *Scheduler) claim(instanceID string) bool {
	s.escMu.Lock()
	defer s.escMu.Unlock()
	if _, busy := s.escalating[instanceID]; busy {
		return false
	}
	s.escalating[instanceID] = struct{}{}
	return true
}

func (s *Scheduler) release(instanceID string) {
	s.escMu.Lock()
	defer s.escMu.Unlock()
	delete(s.escalating, instanceID)
}

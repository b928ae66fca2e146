package reminder

import (
	"context"

	"github.com/pathakanu/mediping/internal/tracker"
	"github.com/sirupsen/logrus"
)

// HandleUserResponse records a reply from phone against its active reminder,
// cancels the pending escalation, and confirms back to the user. It returns
// false when the phone has no reminder awaiting a reply.
func (s *Scheduler) HandleUserResponse(ctx context.Context, phone, text string) bool {
	phone = tracker.NormalizePhone(phone)
	reply, known := ParseReply(text)
	response := text
	if known {
		response = string(reply)
	}

	entry, ok := s.tracker.HandleResponse(phone, response)
	if !ok {
		s.log.WithField("user_phone", phone).Info("reply without an active reminder")
		return false
	}
	s.queue.CancelKey(kindEscalation, entry.InstanceID)

	if known {
		s.metrics.Reply(string(reply))
	} else {
		s.metrics.Reply("other")
	}
	if reply == ReplyRemindLater {
		s.queue.After(s.followUp, kindFollowUp, entry.InstanceID, func(ctx context.Context) {
			s.sendFollowUp(ctx, entry)
		})
	}

	fields := logrus.Fields{"instance_id": entry.InstanceID, "user_phone": phone, "response": response}
	if err := s.send(ctx, s.reminders, phone, s.renderConfirmation(reply, entry)); err != nil {
		s.log.WithFields(fields).WithError(err).Error("send reply confirmation")
	}
	s.log.WithFields(fields).Info("reminder reply recorded")
	s.publishTracked()
	return true
}

// ForceMarkResponded resolves an instance on behalf of its user and cancels
// its escalation.
func (s *Scheduler) ForceMarkResponded(instanceID, response string) bool {
	if !s.tracker.ForceMarkResponded(instanceID, response) {
		return false
	}
	s.queue.CancelKey(kindEscalation, instanceID)
	s.log.WithField("instance_id", instanceID).Info("reminder marked responded by admin")
	s.publishTracked()
	return true
}

// sendFollowUp repeats a reminder the user asked to be reminded of later.
// The repeat is not tracked and never escalates.
func (s *Scheduler) sendFollowUp(ctx context.Context, entry tracker.Entry) {
	fields := logrus.Fields{"instance_id": entry.InstanceID, "user_phone": entry.UserPhone}
	if err := s.send(ctx, s.reminders, entry.UserPhone, s.renderFollowUp(entry)); err != nil {
		s.metrics.FollowUp(false)
		s.log.WithFields(fields).WithError(err).Error("send follow-up reminder")
		return
	}
	s.metrics.FollowUp(true)
	s.log.WithFields(fields).Info("follow-up reminder sent")
}

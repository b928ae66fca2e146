package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/mediping/internal/tracker"
)

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}

func (s *Scheduler) renderReminder(userName, medicine, at string, notes *string) string {
	var sb strings.Builder
	sb.WriteString("⏰ *Medicine Reminder* ⏰\n\n")
	if strings.TrimSpace(userName) != "" {
		fmt.Fprintf(&sb, "Hello %s! 👋\n\n", userName)
	} else {
		sb.WriteString("Hello! 👋\n\n")
	}
	sb.WriteString("It's time to take your medicine:\n")
	fmt.Fprintf(&sb, "💊 *%s* at *%s*\n\n", medicine, at)
	if notes != nil && strings.TrimSpace(*notes) != "" {
		fmt.Fprintf(&sb, "📝 *Notes:* %s\n\n", strings.TrimSpace(*notes))
	}
	sb.WriteString(s.replyFooter())
	fmt.Fprintf(&sb, "\n\n⚠️ *Important:* If you don't respond within %d minutes, we'll contact your emergency contact.", minutes(s.window))
	return sb.String()
}

func (s *Scheduler) renderFollowUp(e tracker.Entry) string {
	var sb strings.Builder
	sb.WriteString("⏰ *Medicine Reminder* ⏰\n\n")
	fmt.Fprintf(&sb, "As requested, here is your reminder again:\n💊 *%s* (scheduled at *%s*)\n\n", e.Medicine, e.Time)
	sb.WriteString("Please take it now if you haven't already.")
	return sb.String()
}

func (s *Scheduler) replyFooter() string {
	return "Please reply with:\n" +
		"✅ \"Taken\" - if you've taken the medicine\n" +
		fmt.Sprintf("⏰ \"Remind later\" - to be reminded in %d minutes\n", minutes(s.followUp)) +
		"❌ \"Skip today\" - if you want to skip this dose"
}

func renderEmergency(e tracker.Entry) string {
	name := e.UserName
	if strings.TrimSpace(name) == "" {
		name = "family member"
	}
	return "🚨 *EMERGENCY ALERT* 🚨\n\n" +
		fmt.Sprintf("Your emergency contact %s has not responded to their medicine reminder.\n\n", name) +
		"📋 *Details:*\n" +
		fmt.Sprintf("💊 Medicine: %s\n", e.Medicine) +
		fmt.Sprintf("⏰ Time: %s\n", e.Time) +
		fmt.Sprintf("📱 User Phone: %s\n\n", e.UserPhone) +
		"Please check on them immediately and ensure they take their medicine.\n\n" +
		"This is an automated alert from MediPing."
}

func (s *Scheduler) renderConfirmation(reply Reply, e tracker.Entry) string {
	switch reply {
	case ReplyTaken:
		return fmt.Sprintf("✅ *Medicine Taken!*\n\nGreat job! You've taken your %s. Stay healthy! 💪", e.Medicine)
	case ReplyRemindLater:
		return fmt.Sprintf("⏰ *Reminder Set!*\n\nI'll remind you again in %d minutes to take your %s.", minutes(s.followUp), e.Medicine)
	case ReplySkipToday:
		return fmt.Sprintf("❌ *Dose Skipped*\n\nYou've chosen to skip today's dose of %s. Please consult your doctor if this becomes a pattern.", e.Medicine)
	default:
		return "📝 *Response Received*\n\nThank you for responding. Please remember to take your medicine as prescribed."
	}
}

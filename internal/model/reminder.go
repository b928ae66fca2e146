package model

import "time"

// ReminderType is the recurrence policy of a medicine reminder.
type ReminderType string

const (
	ReminderOneTime     ReminderType = "one_time"
	ReminderDaily       ReminderType = "daily"
	ReminderWeekly      ReminderType = "weekly"
	ReminderMonthly     ReminderType = "monthly"
	ReminderCustomRange ReminderType = "custom_range"
)

// Valid reports whether t is one of the supported recurrence policies.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderOneTime, ReminderDaily, ReminderWeekly, ReminderMonthly, ReminderCustomRange:
		return true
	}
	return false
}

// MedicineReminder is a persisted reminder definition for a user.
// Dates are stored as YYYY-MM-DD strings and Time as HH:MM (24h).
type MedicineReminder struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"index;not null" json:"user_id"`
	User         User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	Medicine     string       `gorm:"not null" json:"medicine"`
	Time         string       `gorm:"size:5;index;not null" json:"time"`
	ReminderType ReminderType `gorm:"size:16;not null;default:daily" json:"reminder_type"`
	StartDate    *string      `gorm:"size:10" json:"start_date"`
	EndDate      *string      `gorm:"size:10" json:"end_date"`
	Notes        *string      `gorm:"type:text" json:"notes"`
	Response     *string      `json:"response"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// Package recurrence decides whether a medicine reminder is due on a given
// calendar day. All comparisons happen on civil dates: the caller passes a
// time already expressed in the user-facing timezone and only its
// year/month/day are used.
package recurrence

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pathakanu/mediping/internal/model"
)

// DateLayout is the storage format of StartDate and EndDate.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

var (
	ErrMedicineRequired = errors.New("medicine name is required")
	ErrInvalidTime      = errors.New("invalid time format, use HH:MM (e.g. 08:00, 21:30)")
	ErrInvalidType      = errors.New("invalid reminder type, choose one_time, daily, weekly, monthly or custom_range")
	ErrInvalidDate      = errors.New("invalid date, use YYYY-MM-DD")
	ErrRangeRequired    = errors.New("custom_range reminders need both start and end dates")
	ErrRangeInverted    = errors.New("end date is before start date")
)

var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// IsDue reports whether def fires on the civil date of today.
// Missing or malformed dates make a reminder not due.
func IsDue(def *model.MedicineReminder, today time.Time) bool {
	if def == nil {
		return false
	}
	date := Civil(today)

	switch def.ReminderType {
	case model.ReminderOneTime:
		start, ok := parseOptional(def.StartDate)
		return ok && start.Equal(date)

	case model.ReminderDaily:
		return true

	case model.ReminderWeekly:
		start, ok := parseOptional(def.StartDate)
		if !ok {
			return false
		}
		days := int(date.Sub(start) / day)
		return days >= 0 && days%7 == 0

	case model.ReminderMonthly:
		start, ok := parseOptional(def.StartDate)
		return ok && start.Day() == date.Day()

	case model.ReminderCustomRange:
		start, okStart := parseOptional(def.StartDate)
		end, okEnd := parseOptional(def.EndDate)
		if !okStart || !okEnd {
			return false
		}
		return !date.Before(start) && !date.After(end)
	}
	return false
}

// Civil truncates t to midnight UTC of its own calendar date, so day
// arithmetic never sees DST offsets.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the civil date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeTime accepts H:MM or HH:MM and returns zero-padded HH:MM.
func NormalizeTime(s string) (string, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", ErrInvalidTime
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, m[2]), nil
}

// Prepare validates a new reminder definition and fills in the date defaults
// for its type. today is the creation day in the user-facing timezone.
func Prepare(def *model.MedicineReminder, today time.Time) error {
	def.Medicine = strings.TrimSpace(def.Medicine)
	if def.Medicine == "" {
		return ErrMedicineRequired
	}

	hhmm, err := NormalizeTime(def.Time)
	if err != nil {
		return err
	}
	def.Time = hhmm

	if def.ReminderType == "" {
		def.ReminderType = model.ReminderDaily
	}
	if !def.ReminderType.Valid() {
		return ErrInvalidType
	}

	start, hasStart, err := parseInput(def.StartDate)
	if err != nil {
		return err
	}
	end, hasEnd, err := parseInput(def.EndDate)
	if err != nil {
		return err
	}
	todayStr := FormatDate(Civil(today))

	switch def.ReminderType {
	case model.ReminderOneTime:
		date := todayStr
		if hasStart {
			date = FormatDate(start)
		}
		def.StartDate = &date
		def.EndDate = &date

	case model.ReminderDaily, model.ReminderWeekly, model.ReminderMonthly:
		// Open-ended policies: EndDate is ignored by IsDue, so it is not kept.
		date := todayStr
		if hasStart {
			date = FormatDate(start)
		}
		def.StartDate = &date
		def.EndDate = nil

	case model.ReminderCustomRange:
		if !hasStart || !hasEnd {
			return ErrRangeRequired
		}
		if end.Before(start) {
			return ErrRangeInverted
		}
		s, e := FormatDate(start), FormatDate(end)
		def.StartDate, def.EndDate = &s, &e
	}
	return nil
}

func parseOptional(s *string) (time.Time, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(*s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseInput(s *string) (time.Time, bool, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return time.Time{}, false, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

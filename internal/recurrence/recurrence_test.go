package recurrence

import (
	"testing"
	"time"

	"github.com/pathakanu/mediping/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestDailyAlwaysDue(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{ReminderType: model.ReminderDaily}
	start := date(t, "2026-01-01")
	for i := 0; i < 400; i++ {
		assert.True(t, IsDue(def, start.AddDate(0, 0, i)), "day %d", i)
	}
}

func TestOneTimeOnlyOnStartDate(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{ReminderType: model.ReminderOneTime, StartDate: strptr("2026-10-15")}

	assert.True(t, IsDue(def, date(t, "2026-10-15")))
	assert.False(t, IsDue(def, date(t, "2026-10-14")))
	assert.False(t, IsDue(def, date(t, "2026-10-16")))
}

func TestWeeklyEverySeventhDay(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{ReminderType: model.ReminderWeekly, StartDate: strptr("2026-03-03")}
	d := date(t, "2026-03-03")

	assert.True(t, IsDue(def, d))
	assert.True(t, IsDue(def, d.AddDate(0, 0, 7)))
	assert.True(t, IsDue(def, d.AddDate(0, 0, 14)))
	assert.False(t, IsDue(def, d.AddDate(0, 0, 3)))
	assert.False(t, IsDue(def, d.AddDate(0, 0, -7)), "never due before the start date")
}

func TestWeeklyAcrossDSTUsesCivilDates(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// DST starts 2026-03-08 in New York; a 7-day wall-clock gap spanning it is 167h.
	def := &model.MedicineReminder{ReminderType: model.ReminderWeekly, StartDate: strptr("2026-03-04")}
	morning := time.Date(2026, 3, 11, 0, 30, 0, 0, loc)
	assert.True(t, IsDue(def, morning))
}

func TestMonthlySameDayOfMonth(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{ReminderType: model.ReminderMonthly, StartDate: strptr("2026-01-15")}

	assert.True(t, IsDue(def, date(t, "2026-02-15")))
	assert.True(t, IsDue(def, date(t, "2027-07-15")))
	assert.False(t, IsDue(def, date(t, "2026-02-16")))
	assert.False(t, IsDue(def, date(t, "2026-02-14")))
}

func TestMonthlyThirtyFirstSkipsShortMonths(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{ReminderType: model.ReminderMonthly, StartDate: strptr("2026-01-31")}

	assert.False(t, IsDue(def, date(t, "2026-02-28")))
	assert.False(t, IsDue(def, date(t, "2026-04-30")))
	assert.True(t, IsDue(def, date(t, "2026-03-31")))
}

func TestCustomRangeInclusive(t *testing.T) {
	t.Parallel()
	def := &model.MedicineReminder{
		ReminderType: model.ReminderCustomRange,
		StartDate:    strptr("2026-05-10"),
		EndDate:      strptr("2026-05-20"),
	}

	assert.False(t, IsDue(def, date(t, "2026-05-09")))
	assert.True(t, IsDue(def, date(t, "2026-05-10")))
	assert.True(t, IsDue(def, date(t, "2026-05-15")))
	assert.True(t, IsDue(def, date(t, "2026-05-20")))
	assert.False(t, IsDue(def, date(t, "2026-05-21")))
}

func TestMalformedDefinitionsFailClosed(t *testing.T) {
	t.Parallel()
	today := date(t, "2026-10-15")

	cases := map[string]*model.MedicineReminder{
		"nil":               nil,
		"one_time no start": {ReminderType: model.ReminderOneTime},
		"weekly garbage":    {ReminderType: model.ReminderWeekly, StartDate: strptr("last tuesday")},
		"monthly empty":     {ReminderType: model.ReminderMonthly, StartDate: strptr("")},
		"range missing end": {ReminderType: model.ReminderCustomRange, StartDate: strptr("2026-10-01")},
		"unknown type":      {ReminderType: "fortnightly", StartDate: strptr("2026-10-15")},
	}
	for name, def := range cases {
		assert.False(t, IsDue(def, today), name)
	}
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()
	got, err := NormalizeTime("8:05")
	require.NoError(t, err)
	assert.Equal(t, "08:05", got)

	got, err = NormalizeTime(" 21:30 ")
	require.NoError(t, err)
	assert.Equal(t, "21:30", got)

	for _, bad := range []string{"24:00", "7", "07:60", "seven"} {
		_, err := NormalizeTime(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestPrepareDefaults(t *testing.T) {
	t.Parallel()
	today := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	oneTime := &model.MedicineReminder{Medicine: " Aspirin ", Time: "8:00", ReminderType: model.ReminderOneTime}
	require.NoError(t, Prepare(oneTime, today))
	assert.Equal(t, "Aspirin", oneTime.Medicine)
	assert.Equal(t, "08:00", oneTime.Time)
	assert.Equal(t, "2026-10-15", *oneTime.StartDate)
	assert.Equal(t, "2026-10-15", *oneTime.EndDate)

	weekly := &model.MedicineReminder{Medicine: "Vitamin D", Time: "07:00", ReminderType: model.ReminderWeekly, EndDate: strptr("2027-01-01")}
	require.NoError(t, Prepare(weekly, today))
	assert.Equal(t, "2026-10-15", *weekly.StartDate)
	assert.Nil(t, weekly.EndDate)

	untyped := &model.MedicineReminder{Medicine: "Metformin", Time: "20:00"}
	require.NoError(t, Prepare(untyped, today))
	assert.Equal(t, model.ReminderDaily, untyped.ReminderType)
}

func TestPrepareRejects(t *testing.T) {
	t.Parallel()
	today := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		def  model.MedicineReminder
		want error
	}{
		{"no medicine", model.MedicineReminder{Time: "08:00"}, ErrMedicineRequired},
		{"bad time", model.MedicineReminder{Medicine: "x", Time: "8am"}, ErrInvalidTime},
		{"bad type", model.MedicineReminder{Medicine: "x", Time: "08:00", ReminderType: "hourly"}, ErrInvalidType},
		{"bad date", model.MedicineReminder{Medicine: "x", Time: "08:00", ReminderType: model.ReminderOneTime, StartDate: strptr("15/10/2026")}, ErrInvalidDate},
		{"range missing", model.MedicineReminder{Medicine: "x", Time: "08:00", ReminderType: model.ReminderCustomRange, StartDate: strptr("2026-10-01")}, ErrRangeRequired},
		{"range inverted", model.MedicineReminder{Medicine: "x", Time: "08:00", ReminderType: model.ReminderCustomRange, StartDate: strptr("2026-10-10"), EndDate: strptr("2026-10-01")}, ErrRangeInverted},
	}
	for _, tc := range cases {
		def := tc.def
		assert.ErrorIs(t, Prepare(&def, today), tc.want, tc.name)
	}
}

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "reminders.db", cfg.SQLitePath)
	assert.Equal(t, DefaultEmergencyWindow, cfg.Reminder.EmergencyWindow)
	assert.Equal(t, DefaultFollowUpDelay, cfg.Reminder.FollowUpDelay)
	assert.Equal(t, DefaultRetention, cfg.Reminder.Retention)
	assert.Equal(t, DefaultDispatchSchedule, cfg.Reminder.DispatchSchedule)
	assert.Equal(t, DefaultTimeoutSchedule, cfg.Reminder.TimeoutSchedule)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.Warnings)
}

func TestFromViperOverrides(t *testing.T) {
	v := newViper()
	v.Set("APP_ENV", "Development")
	v.Set("LOCAL_TIMEZONE", "Asia/Kolkata")
	v.Set("EMERGENCY_WINDOW", "2m")
	v.Set("SHUTDOWN_TIMEOUT", "45s")
	v.Set("TWILIO_WHATSAPP_NUMBER", "whatsapp:+14155238886")

	cfg := FromViper(v)

	require.NotNil(t, cfg.LocalTimezone)
	assert.Equal(t, "Asia/Kolkata", cfg.LocalTimezone.String())
	assert.Equal(t, 2*time.Minute, cfg.Reminder.EmergencyWindow)
	assert.Equal(t, 45*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "+14155238886", cfg.TwilioSMSNumber, "sms sender falls back to the whatsapp number")
}

func TestFromViperRejectsBadValues(t *testing.T) {
	v := viper.New()
	v.Set("LOCAL_TIMEZONE", "Mars/Olympus")
	v.Set("FOLLOW_UP_DELAY", "-5m")

	cfg := FromViper(v)

	assert.Equal(t, time.Local, cfg.LocalTimezone)
	assert.Equal(t, DefaultFollowUpDelay, cfg.Reminder.FollowUpDelay)
	assert.Equal(t, DefaultEmergencyWindow, cfg.Reminder.EmergencyWindow)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)

	require.NotEmpty(t, cfg.Warnings)
	joined := strings.Join(cfg.Warnings, "\n")
	assert.Contains(t, joined, `invalid LOCAL_TIMEZONE "Mars/Olympus"`)
	assert.Contains(t, joined, `FOLLOW_UP_DELAY="-5m" is not a positive duration`)
}

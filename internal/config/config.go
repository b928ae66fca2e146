package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port                 string
	AppEnv               string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioSMSNumber      string
	OpenAIAPIKey         string
	DatabaseURL          string
	SQLitePath           string
	LocalTimezone        *time.Location
	LogLevel             string
	LogFile              string
	ShutdownTimeout      time.Duration

	Reminder ReminderConfig

	// Warnings lists the settings that were rejected and replaced by their
	// defaults. Config loads before the logger exists, so callers log them.
	Warnings []string
}

// ReminderConfig holds the timing knobs of the reminder engine.
type ReminderConfig struct {
	EmergencyWindow  time.Duration
	FollowUpDelay    time.Duration
	Retention        time.Duration
	SendTimeout      time.Duration
	DispatchSchedule string
	TimeoutSchedule  string
	CleanupSchedule  string
}

const (
	DefaultEmergencyWindow  = 7 * time.Minute
	DefaultFollowUpDelay    = 30 * time.Minute
	DefaultRetention        = 24 * time.Hour
	DefaultSendTimeout      = 15 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultDispatchSchedule = "0 * * * * *"
	DefaultTimeoutSchedule  = "*/30 * * * * *"
	DefaultCleanupSchedule  = "@hourly"
)

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("SQLITE_PATH", "reminders.db")
	v.SetDefault("LOCAL_TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EMERGENCY_WINDOW", DefaultEmergencyWindow)
	v.SetDefault("FOLLOW_UP_DELAY", DefaultFollowUpDelay)
	v.SetDefault("TRACKING_RETENTION", DefaultRetention)
	v.SetDefault("SEND_TIMEOUT", DefaultSendTimeout)
	v.SetDefault("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	v.SetDefault("DISPATCH_SCHEDULE", DefaultDispatchSchedule)
	v.SetDefault("TIMEOUT_SCHEDULE", DefaultTimeoutSchedule)
	v.SetDefault("CLEANUP_SCHEDULE", DefaultCleanupSchedule)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	var warnings []string
	timezoneName := v.GetString("LOCAL_TIMEZONE")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err))
		location = time.Local
	}

	whatsAppNumber := v.GetString("TWILIO_WHATSAPP_NUMBER")
	smsNumber := v.GetString("TWILIO_PHONE_NUMBER")
	if smsNumber == "" {
		smsNumber = strings.TrimPrefix(whatsAppNumber, "whatsapp:")
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		AppEnv:               strings.ToLower(v.GetString("APP_ENV")),
		TwilioAccountSID:     v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: whatsAppNumber,
		TwilioSMSNumber:      smsNumber,
		OpenAIAPIKey:         v.GetString("OPENAI_API_KEY"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		SQLitePath:           v.GetString("SQLITE_PATH"),
		LocalTimezone:        location,
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFile:              v.GetString("LOG_FILE"),
		ShutdownTimeout:      positiveDuration(v, "SHUTDOWN_TIMEOUT", DefaultShutdownTimeout, &warnings),
		Reminder: ReminderConfig{
			EmergencyWindow:  positiveDuration(v, "EMERGENCY_WINDOW", DefaultEmergencyWindow, &warnings),
			FollowUpDelay:    positiveDuration(v, "FOLLOW_UP_DELAY", DefaultFollowUpDelay, &warnings),
			Retention:        positiveDuration(v, "TRACKING_RETENTION", DefaultRetention, &warnings),
			SendTimeout:      positiveDuration(v, "SEND_TIMEOUT", DefaultSendTimeout, &warnings),
			DispatchSchedule: v.GetString("DISPATCH_SCHEDULE"),
			TimeoutSchedule:  v.GetString("TIMEOUT_SCHEDULE"),
			CleanupSchedule:  v.GetString("CLEANUP_SCHEDULE"),
		},
	}
	cfg.Warnings = warnings
	return cfg
}

// IsDevelopment reports whether outbound messages should be logged instead of sent.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func positiveDuration(v *viper.Viper, key string, def time.Duration, warnings *[]string) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not a positive duration, using %s", key, v.GetString(key), def))
		return def
	}
	return d
}

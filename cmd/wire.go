package cmd

import (
	"fmt"

	"github.com/pathakanu/mediping/internal/bot"
	"github.com/pathakanu/mediping/internal/config"
	"github.com/pathakanu/mediping/internal/database"
	"github.com/pathakanu/mediping/internal/logger"
	"github.com/pathakanu/mediping/internal/metrics"
	myopenai "github.com/pathakanu/mediping/internal/openai"
	"github.com/pathakanu/mediping/internal/reminder"
	"github.com/pathakanu/mediping/internal/twilio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	db        *gorm.DB
	store     *database.Store
	registry  *prometheus.Registry
	scheduler *reminder.Scheduler
	bot       *bot.Bot
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	for _, w := range cfg.Warnings {
		log.WithField("component", "config").Warn(w)
	}
	return log
}

func openStore(cfg *config.Config, log *logrus.Logger) (*gorm.DB, *database.Store, error) {
	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database init: %w", err)
	}
	return db, database.NewStore(db), nil
}

func wireApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	db, store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	reminders, emergency := newSenders(cfg, log)
	scheduler, err := reminder.New(reminder.Options{
		Store:            store,
		Reminders:        reminders,
		Emergency:        emergency,
		Log:              log,
		Metrics:          m,
		Location:         cfg.LocalTimezone,
		EmergencyWindow:  cfg.Reminder.EmergencyWindow,
		FollowUpDelay:    cfg.Reminder.FollowUpDelay,
		Retention:        cfg.Reminder.Retention,
		SendTimeout:      cfg.Reminder.SendTimeout,
		DispatchSchedule: cfg.Reminder.DispatchSchedule,
		TimeoutSchedule:  cfg.Reminder.TimeoutSchedule,
		CleanupSchedule:  cfg.Reminder.CleanupSchedule,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler init: %w", err)
	}

	var classifier bot.Classifier
	if cfg.OpenAIAPIKey != "" {
		classifier = myopenai.New(cfg.OpenAIAPIKey)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		store:     store,
		registry:  registry,
		scheduler: scheduler,
		bot:       bot.New(scheduler, classifier, log),
	}, nil
}

// newSenders returns the WhatsApp reminder transport and the SMS emergency
// transport. In development both only log.
func newSenders(cfg *config.Config, log *logrus.Logger) (reminder.Sender, reminder.Sender) {
	if cfg.IsDevelopment() {
		log.Warn("APP_ENV is development: outbound messages are logged, not sent")
		return twilio.LogSender{Channel: "whatsapp", Log: log}, twilio.LogSender{Channel: "sms", Log: log}
	}
	client := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, cfg.TwilioSMSNumber, log)
	return client.WhatsAppSender(), client.SMSSender()
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		a.log.WithError(err).Warn("database close")
	}
}

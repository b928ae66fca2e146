// Package api exposes user and reminder management, tracking inspection,
// scheduler control, the Twilio webhook, and metrics over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pathakanu/mediping/internal/model"
	"github.com/pathakanu/mediping/internal/timerq"
	"github.com/pathakanu/mediping/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the API manages.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateReminder(ctx context.Context, reminder *model.MedicineReminder) error
	ListReminders(ctx context.Context, userID *uint) ([]model.MedicineReminder, error)
	UpdateReminderResponse(ctx context.Context, id uint, response string) (*model.MedicineReminder, error)
}

// Engine is the reminder scheduler as seen by the API.
type Engine interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
	TrackingStatus() tracker.Stats
	AllActive() []tracker.Entry
	UserReminders(phone string) []tracker.Entry
	PendingTimers() []timerq.Item
	ForceMarkResponded(instanceID, response string) bool
}

// Options wires the router's dependencies.
type Options struct {
	Store    Store
	Engine   Engine
	Webhook  http.Handler
	Gatherer prometheus.Gatherer
	Log      *logrus.Logger
	Location *time.Location
	Now      func() time.Time
	// Context outlives requests; the scheduler is started with it.
	Context context.Context
}

type handler struct {
	store  Store
	engine Engine
	log    *logrus.Logger
	loc    *time.Location
	now    func() time.Time
	ctx    context.Context
}

// NewRouter builds the HTTP routes.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		store:  opts.Store,
		engine: opts.Engine,
		log:    opts.Log,
		loc:    opts.Location,
		now:    opts.Now,
		ctx:    opts.Context,
	}
	if h.log == nil {
		h.log = logrus.New()
		h.log.SetOutput(io.Discard)
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.ctx == nil {
		h.ctx = context.Background()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Webhook != nil {
		r.Method(http.MethodPost, "/twilio/webhook", opts.Webhook)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/", h.listUsers)
		})
		r.Route("/reminders", func(r chi.Router) {
			r.Post("/", h.createReminder)
			r.Get("/", h.listReminders)
			r.Put("/{id}/response", h.updateReminderResponse)
		})
		r.Route("/tracking", func(r chi.Router) {
			r.Get("/status", h.trackingStatus)
			r.Get("/active", h.trackingActive)
			r.Get("/users/{phone}", h.trackingUser)
			r.Get("/timers", h.trackingTimers)
			r.Post("/{instanceID}/respond", h.forceRespond)
		})
		r.Post("/scheduler/start", h.startScheduler)
		r.Post("/scheduler/stop", h.stopScheduler)
	})
	return r
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
				}).Info("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

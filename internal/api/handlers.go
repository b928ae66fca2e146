package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pathakanu/mediping/internal/database"
	"github.com/pathakanu/mediping/internal/model"
	"github.com/pathakanu/mediping/internal/recurrence"
)

type createUserRequest struct {
	UserName        string  `json:"user_name"`
	PhoneNumber     string  `json:"phone_number"`
	Email           *string `json:"email"`
	EmergencyNumber string  `json:"emergency_number"`
	Age             *int    `json:"age"`
	Language        string  `json:"language"`
}

type createReminderRequest struct {
	UserID       uint               `json:"user_id"`
	Medicine     string             `json:"medicine"`
	Time         string             `json:"time"`
	ReminderType model.ReminderType `json:"reminder_type"`
	StartDate    *string            `json:"start_date"`
	EndDate      *string            `json:"end_date"`
	Notes        *string            `json:"notes"`
}

type responseRequest struct {
	Response string `json:"response"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"scheduler_running": h.engine.Running(),
	})
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user := model.User{
		UserName:        strings.TrimSpace(req.UserName),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		Email:           req.Email,
		EmergencyNumber: strings.TrimSpace(req.EmergencyNumber),
		Age:             req.Age,
		Language:        strings.TrimSpace(req.Language),
	}
	if user.UserName == "" || user.PhoneNumber == "" || user.EmergencyNumber == "" {
		writeError(w, http.StatusBadRequest, "name, phone number, and emergency number are required")
		return
	}

	if err := h.store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			writeError(w, http.StatusConflict, "user with this phone number already exists")
			return
		}
		h.log.WithError(err).Error("register user")
		writeError(w, http.StatusInternalServerError, "could not register user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list users")
		writeError(w, http.StatusInternalServerError, "could not list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) createReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	def := model.MedicineReminder{
		UserID:       req.UserID,
		Medicine:     req.Medicine,
		Time:         req.Time,
		ReminderType: req.ReminderType,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Notes:        req.Notes,
	}
	if err := recurrence.Prepare(&def, h.now().In(h.loc)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateReminder(r.Context(), &def); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.WithError(err).Error("create reminder")
		writeError(w, http.StatusInternalServerError, "could not create reminder")
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (h *handler) listReminders(w http.ResponseWriter, r *http.Request) {
	var userID *uint
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
			return
		}
		uid := uint(id)
		userID = &uid
	}

	reminders, err := h.store.ListReminders(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).Error("list reminders")
		writeError(w, http.StatusInternalServerError, "could not list reminders")
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *handler) updateReminderResponse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}
	var req responseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reminder, err := h.store.UpdateReminderResponse(r.Context(), uint(id), req.Response)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		h.log.WithError(err).Error("update reminder response")
		writeError(w, http.StatusInternalServerError, "could not update reminder")
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (h *handler) trackingStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.TrackingStatus())
}

func (h *handler) trackingActive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.AllActive())
}

func (h *handler) trackingUser(w http.ResponseWriter, r *http.Request) {
	phone, err := url.PathUnescape(chi.URLParam(r, "phone"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	writeJSON(w, http.StatusOK, h.engine.UserReminders(phone))
}

func (h *handler) trackingTimers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.PendingTimers())
}

func (h *handler) forceRespond(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	instanceID := chi.URLParam(r, "instanceID")
	if !h.engine.ForceMarkResponded(instanceID, req.Response) {
		writeError(w, http.StatusNotFound, "tracked reminder not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"instance_id": instanceID, "status": "responded"})
}

func (h *handler) startScheduler(w http.ResponseWriter, _ *http.Request) {
	h.engine.Start(h.ctx)
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.engine.Running()})
}

func (h *handler) stopScheduler(w http.ResponseWriter, _ *http.Request) {
	h.engine.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.engine.Running()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

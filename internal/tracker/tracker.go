// Package tracker keeps the in-memory registry of dispatched reminder
// instances and the replies or escalations recorded against them.
//
// Nothing here is persisted: a process restart forgets every instance.
package tracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathakanu/mediping/internal/model"
)

// DefaultRetention is how long an instance stays addressable after dispatch.
const DefaultRetention = 24 * time.Hour

// Entry is one dispatched reminder instance.
type Entry struct {
	InstanceID           string     `json:"instance_id"`
	ReminderID           uint       `json:"reminder_id"`
	UserID               uint       `json:"user_id"`
	UserPhone            string     `json:"user_phone"`
	UserName             string     `json:"user_name"`
	EmergencyNumber      string     `json:"emergency_number"`
	Medicine             string     `json:"medicine"`
	Time                 string     `json:"time"`
	SentAt               time.Time  `json:"sent_at"`
	Responded            bool       `json:"responded"`
	Response             *string    `json:"response"`
	RespondedAt          *time.Time `json:"responded_at"`
	EmergencyContacted   bool       `json:"emergency_contacted"`
	EmergencyContactedAt *time.Time `json:"emergency_contacted_at"`
}

// Pending reports whether the instance still awaits a reply or escalation.
func (e Entry) Pending() bool {
	return !e.Responded && !e.EmergencyContacted
}

// Stats aggregates the instances currently held by the tracker.
type Stats struct {
	Total              int    `json:"total"`
	Responded          int    `json:"responded"`
	Pending            int    `json:"pending"`
	EmergencyContacted int    `json:"emergency_contacted"`
	ResponseRate       string `json:"response_rate"`
}

// Tracker is safe for concurrent use; one mutex guards both indexes.
type Tracker struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	byPhone   map[string][]string
	now       func() time.Time
	retention time.Duration
	newID     func() string
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// WithIDGenerator replaces the uuid instance id generator.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// New creates an empty tracker. now defaults to time.Now.
func New(now func() time.Time, opts ...Option) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		entries:   make(map[string]*Entry),
		byPhone:   make(map[string][]string),
		now:       now,
		retention: DefaultRetention,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddReminder registers a freshly dispatched instance of reminder for user.
func (t *Tracker) AddReminder(reminderID uint, user model.User, reminder model.MedicineReminder) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	phone := NormalizePhone(user.PhoneNumber)
	entry := &Entry{
		InstanceID:      t.newID(),
		ReminderID:      reminderID,
		UserID:          user.ID,
		UserPhone:       phone,
		UserName:        user.UserName,
		EmergencyNumber: user.EmergencyNumber,
		Medicine:        reminder.Medicine,
		Time:            reminder.Time,
		SentAt:          t.now(),
	}
	t.entries[entry.InstanceID] = entry
	t.byPhone[phone] = append(t.byPhone[phone], entry.InstanceID)
	return *entry
}

// GetActiveReminder returns the most recently added unresponded instance for
// phone. Older outstanding instances are not addressable while a newer one is.
func (t *Tracker) GetActiveReminder(phone string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.activeLocked(NormalizePhone(phone)); e != nil {
		return *e, true
	}
	return Entry{}, false
}

// HandleResponse records response against the active instance for phone.
func (t *Tracker) HandleResponse(phone, response string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.activeLocked(NormalizePhone(phone))
	if e == nil {
		return Entry{}, false
	}
	markResponded(e, response, t.now())
	return *e, true
}

// CheckTimeouts lists instances sent at least window ago that have neither a
// reply nor an escalation, oldest first. Results are not consumed.
func (t *Tracker) CheckTimeouts(window time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	var out []Entry
	for _, e := range t.entries {
		if !e.Pending() {
			continue
		}
		if now.Sub(e.SentAt) >= window {
			out = append(out, *e)
		}
	}
	sortBySentAt(out)
	return out
}

// MarkEmergencyContacted flags the instance as escalated. The first call sets
// the timestamp; later calls leave it untouched and still return true.
func (t *Tracker) MarkEmergencyContacted(instanceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[instanceID]
	if !ok {
		return false
	}
	if !e.EmergencyContacted {
		now := t.now()
		e.EmergencyContacted = true
		e.EmergencyContactedAt = &now
	}
	return true
}

// ForceMarkResponded is the admin override used when staff confirm a dose
// out of band. It leaves already responded instances unchanged.
func (t *Tracker) ForceMarkResponded(instanceID, response string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[instanceID]
	if !ok {
		return false
	}
	if !e.Responded {
		if strings.TrimSpace(response) == "" {
			response = "admin_override"
		}
		markResponded(e, response, t.now())
	}
	return true
}

// Get returns a copy of a single instance.
func (t *Tracker) Get(instanceID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[instanceID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Stats computes aggregate counters over the instances currently held.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Stats
	for _, e := range t.entries {
		s.Total++
		if e.Responded {
			s.Responded++
		}
		if e.EmergencyContacted {
			s.EmergencyContacted++
		}
		if e.Pending() {
			s.Pending++
		}
	}
	s.ResponseRate = "0"
	if s.Total > 0 {
		s.ResponseRate = fmt.Sprintf("%.1f", float64(s.Responded)/float64(s.Total)*100)
	}
	return s
}

// AllActive returns every tracked instance, oldest first.
func (t *Tracker) AllActive() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sortBySentAt(out)
	return out
}

// UserReminders returns the tracked instances for phone in dispatch order.
func (t *Tracker) UserReminders(phone string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := t.byPhone[NormalizePhone(phone)]
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := t.entries[id]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// Cleanup drops instances older than the retention window and returns how
// many were removed.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)
	removed := 0
	for id, e := range t.entries {
		if e.SentAt.Before(cutoff) {
			delete(t.entries, id)
			removed++
		}
	}

	for phone, ids := range t.byPhone {
		kept := ids[:0]
		for _, id := range ids {
			if _, ok := t.entries[id]; ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(t.byPhone, phone)
			continue
		}
		t.byPhone[phone] = kept
	}
	return removed
}

// Len is the number of tracked instances.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Tracker) activeLocked(phone string) *Entry {
	ids := t.byPhone[phone]
	for i := len(ids) - 1; i >= 0; i-- {
		if e, ok := t.entries[ids[i]]; ok && !e.Responded {
			return e
		}
	}
	return nil
}

func markResponded(e *Entry, response string, at time.Time) {
	e.Responded = true
	e.Response = &response
	e.RespondedAt = &at
}

func sortBySentAt(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SentAt.Equal(entries[j].SentAt) {
			return entries[i].InstanceID < entries[j].InstanceID
		}
		return entries[i].SentAt.Before(entries[j].SentAt)
	})
}

// NormalizePhone returns the E.164 form of phone: the whatsapp: channel prefix
// Twilio adds to senders is stripped and a missing leading + is added.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:"))
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

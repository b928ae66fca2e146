// Package bot handles inbound Twilio messages and routes reminder replies.
package bot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	myopenai "github.com/pathakanu/mediping/internal/openai"
	"github.com/pathakanu/mediping/internal/reminder"
	"github.com/pathakanu/mediping/internal/tracker"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go/twiml"
)

// DedupeWindow is how long a Twilio MessageSid is remembered.
const DedupeWindow = 10 * time.Minute

// ReplyHandler resolves replies against dispatched reminders.
type ReplyHandler interface {
	HandleUserResponse(ctx context.Context, phone, text string) bool
	HasActiveReminder(phone string) bool
}

// Classifier maps free text to a reply keyword, or "" when it is not one.
type Classifier interface {
	ClassifyReply(ctx context.Context, text string) (string, error)
}

// Bot answers the Twilio messaging webhook.
type Bot struct {
	replies    ReplyHandler
	classifier Classifier
	seen       *cache.Cache
	logger     *logrus.Logger
}

// New creates a Bot. classifier may be nil.
func New(replies ReplyHandler, classifier Classifier, logger *logrus.Logger) *Bot {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Bot{
		replies:    replies,
		classifier: classifier,
		seen:       cache.New(DedupeWindow, 2*DedupeWindow),
		logger:     logger,
	}
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.WithError(err).Warn("webhook: parse form")
		b.writeTwilioResponse(w, "Sorry, I couldn't understand that request.")
		return
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))
	if from == "" || body == "" {
		b.writeTwilioResponse(w, "I need a message to work with. Please try again.")
		return
	}

	if sid := r.FormValue("MessageSid"); sid != "" {
		if err := b.seen.Add(sid, struct{}{}, cache.DefaultExpiration); err != nil {
			b.logger.WithField("message_sid", sid).Debug("webhook: duplicate delivery ignored")
			b.writeTwilioResponse(w, "")
			return
		}
	}

	phone := sanitizeWhatsAppNumber(from)
	reply, ok := b.determineReply(r.Context(), phone, body)
	if !ok {
		b.writeTwilioResponse(w, helpResponse())
		return
	}

	if !b.replies.HandleUserResponse(r.Context(), phone, string(reply)) {
		b.writeTwilioResponse(w, "You don't have a pending medicine reminder right now.")
		return
	}
	// The confirmation goes out through the outbound transport.
	b.writeTwilioResponse(w, "")
}

func (b *Bot) determineReply(ctx context.Context, phone, body string) (reminder.Reply, bool) {
	if reply, ok := reminder.ParseReply(body); ok {
		return reply, true
	}
	if b.classifier == nil || !b.replies.HasActiveReminder(phone) {
		return "", false
	}

	label, err := b.classifier.ClassifyReply(ctx, body)
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) {
			b.logger.WithError(err).Warn("reply classification failed")
		}
		return "", false
	}
	if label == "" {
		return "", false
	}
	return reminder.ParseReply(label)
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: message})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		b.logger.WithError(err).Error("twilio response encode")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	if _, err := io.WriteString(w, doc); err != nil {
		b.logger.WithError(err).Warn("twilio response write")
	}
}

func sanitizeWhatsAppNumber(from string) string {
	// Twilio prepends whatsapp: to the number.
	return tracker.NormalizePhone(from)
}

func helpResponse() string {
	return "To answer your medicine reminder, reply with:\n- Taken\n- Remind later\n- Skip today"
}

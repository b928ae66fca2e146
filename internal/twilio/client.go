package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrSenderNotConfigured is returned when the channel's from-number is missing.
var ErrSenderNotConfigured = errors.New("twilio sender number is not configured")

// Client wraps Twilio messaging operations required by the bot.
type Client struct {
	client       *twilio.RestClient
	fromWhatsApp string
	fromSMS      string
	log          *logrus.Logger
}

// New creates a Twilio client bound to the configured WhatsApp and SMS sender numbers.
func New(accountSID, authToken, fromWhatsApp, fromSMS string, log *logrus.Logger) *Client {
	return &Client{
		client:       twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		fromWhatsApp: fromWhatsApp,
		fromSMS:      fromSMS,
		log:          log,
	}
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio's API.
func (c *Client) SendWhatsAppMessage(ctx context.Context, to, body string) error {
	sender := normalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("whatsapp: %w", ErrSenderNotConfigured)
	}
	recipient := normalizeWhatsAppAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}
	return c.create(ctx, sender, recipient, body)
}

// SendSMS sends a plain SMS; used for emergency contacts who may not use WhatsApp.
func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	sender := normalizePhoneAddress(c.fromSMS)
	if sender == "" {
		return fmt.Errorf("sms: %w", ErrSenderNotConfigured)
	}
	recipient := normalizePhoneAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}
	return c.create(ctx, sender, recipient, body)
}

func (c *Client) create(ctx context.Context, from, to, body string) error {
	if c.client == nil {
		return fmt.Errorf("twilio client not initialised")
	}
	// The REST client has no context support; honour cancellation up front.
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	c.log.WithFields(logrus.Fields{"to": to, "from": from, "sid": sid}).Debug("twilio: message sent")
	return nil
}

// SenderFunc adapts a send function to the reminder engine's Sender.
type SenderFunc func(ctx context.Context, to, body string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, to, body string) error {
	return f(ctx, to, body)
}

// WhatsAppSender is the channel used for reminders and confirmations.
func (c *Client) WhatsAppSender() SenderFunc { return c.SendWhatsAppMessage }

// SMSSender is the channel used for emergency escalations.
func (c *Client) SMSSender() SenderFunc { return c.SendSMS }

// LogSender writes messages to the log instead of sending them. It is the
// transport in development mode.
type LogSender struct {
	Channel string
	Log     *logrus.Logger
}

// Send logs the message and always succeeds.
func (s LogSender) Send(_ context.Context, to, body string) error {
	s.Log.WithFields(logrus.Fields{"channel": s.Channel, "to": to}).Infof("[DEV] would send: %s", body)
	return nil
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}

func normalizePhoneAddress(number string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	return "+" + trimmed
}

package twilio

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhatsAppAddress(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":                      "",
		"  ":                    "",
		"+14155238886":          "whatsapp:+14155238886",
		"14155238886":           "whatsapp:+14155238886",
		"whatsapp:+14155238886": "whatsapp:+14155238886",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeWhatsAppAddress(in), in)
	}
}

func TestNormalizePhoneAddress(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":                      "",
		"+919800000001":         "+919800000001",
		"919800000001":          "+919800000001",
		"whatsapp:+14155238886": "+14155238886",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePhoneAddress(in), in)
	}
}

func TestSendWithoutSenderNumberFails(t *testing.T) {
	t.Parallel()
	c := New("AC123", "token", "", "", logrus.New())

	err := c.SendWhatsAppMessage(context.Background(), "+15550001", "hi")
	assert.ErrorIs(t, err, ErrSenderNotConfigured)

	err = c.SMSSender().Send(context.Background(), "+15550001", "hi")
	assert.ErrorIs(t, err, ErrSenderNotConfigured)
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	t.Parallel()
	c := New("AC123", "token", "+14155238886", "+14155238886", logrus.New())
	assert.Error(t, c.SendWhatsAppMessage(context.Background(), " ", "hi"))
	assert.Error(t, c.SendSMS(context.Background(), "", "hi"))
}

func TestSendHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	c := New("AC123", "token", "+14155238886", "+14155238886", logrus.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.SendSMS(ctx, "+15550001", "hi"), context.Canceled)
}

func TestLogSender(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	s := LogSender{Channel: "sms", Log: log}
	assert.NoError(t, s.Send(context.Background(), "+15550001", "EMERGENCY ALERT"))
	assert.Contains(t, buf.String(), "EMERGENCY ALERT")
	assert.Contains(t, buf.String(), "channel=sms")
}

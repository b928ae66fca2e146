package reminder

import (
	"testing"

	"github.com/pathakanu/mediping/internal/tracker"
	"github.com/stretchr/testify/assert"
)

func TestParseReply(t *testing.T) {
	cases := map[string]Reply{
		"taken":        ReplyTaken,
		"  TAKEN\n":    ReplyTaken,
		"Remind later": ReplyRemindLater,
		"skip today":   ReplySkipToday,
		"Skip Today  ": ReplySkipToday,
	}
	for in, want := range cases {
		got, ok := ParseReply(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "took it", "remind  later", "skip", "taken!"} {
		_, ok := ParseReply(in)
		assert.False(t, ok, in)
	}
}

func TestEmergencyTextFallsBackToFamilyMember(t *testing.T) {
	body := renderEmergency(tracker.Entry{Medicine: "Metformin", Time: "08:00", UserPhone: "+15550001"})
	assert.Contains(t, body, "family member")
	assert.Contains(t, body, "Metformin")
}

func TestConfirmationTexts(t *testing.T) {
	h := newHarness(t)
	entry := tracker.Entry{Medicine: "Metformin"}

	assert.Contains(t, h.sched.renderConfirmation(ReplyTaken, entry), "Metformin")
	assert.Contains(t, h.sched.renderConfirmation(ReplySkipToday, entry), "Dose Skipped")
	assert.Contains(t, h.sched.renderConfirmation("", entry), "Response Received")
}

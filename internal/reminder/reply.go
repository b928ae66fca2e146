package reminder

import "strings"

// Reply is one of the keywords a user can send back to a reminder.
type Reply string

const (
	ReplyTaken       Reply = "taken"
	ReplyRemindLater Reply = "remind later"
	ReplySkipToday   Reply = "skip today"
)

// Replies lists the accepted keywords in the order they are offered.
var Replies = []Reply{ReplyTaken, ReplyRemindLater, ReplySkipToday}

// ParseReply matches text against the reply keywords, ignoring case and
// surrounding whitespace.
func ParseReply(text string) (Reply, bool) {
	normalized := Reply(strings.ToLower(strings.TrimSpace(text)))
	for _, r := range Replies {
		if normalized == r {
			return r, true
		}
	}
	return "", false
}

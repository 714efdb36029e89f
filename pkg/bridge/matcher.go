package bridge

import "time"

// Matcher decides which single update in a fetched batch (if any) answers a
// given question. It is a pure function of its inputs plus the fixed chat
// configuration, so repeated calls over the same batch give the same result.
type Matcher struct {
	// ChatID is the one conversational endpoint this process is bound to.
	// Messages from any other chat are never considered.
	ChatID int64
	// SelfID is the bot's own user id; its outgoing messages echo back on
	// the update feed and must not be mistaken for replies.
	SelfID int64
	// ClockSkew widens the loose-mode freshness window to tolerate drift
	// between the transport clock and message timestamps.
	ClockSkew time.Duration
}

// Match holds the accepted update: exactly one of Click and Message is set.
type Match struct {
	Click   *ButtonClick
	Message *IncomingMessage
}

// Match scans updates from most recent to least recent and returns the first
// acceptable candidate. Newest-first is deliberate: when several plausible
// replies land in one batch, the human may have corrected themselves, and
// the last word wins.
//
// A button click referencing the question's message id is unambiguous and
// accepted immediately. A text/media message must come from the configured
// chat, from someone other than the bot, carry usable content, and either
// reply-link to the question directly or, in loose mode, be fresh enough and
// sequenced after the question.
func (m *Matcher) Match(updates []Update, q Question) (*Match, bool) {
	for i := len(updates) - 1; i >= 0; i-- {
		u := updates[i]
		if u.Click != nil {
			if u.Click.MessageID == q.ID {
				return &Match{Click: u.Click}, true
			}
			continue
		}
		if u.Message == nil {
			continue
		}
		if m.acceptMessage(u.Message, q) {
			return &Match{Message: u.Message}, true
		}
	}
	return nil, false
}

func (m *Matcher) acceptMessage(msg *IncomingMessage, q Question) bool {
	if msg.ChatID != m.ChatID {
		return false
	}
	if msg.SenderID == m.SelfID {
		return false
	}
	if !msg.HasContent() {
		return false
	}
	if msg.ReplyTo == q.ID {
		// An explicit reply link trumps every freshness heuristic.
		return true
	}
	if q.Mode != ModeLoose {
		return false
	}
	earliest := q.IssueTime - int64(m.ClockSkew/time.Second)
	return msg.SentAt >= earliest && msg.MessageID > q.ID
}

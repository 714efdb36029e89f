package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChatID int64 = 42
	testSelfID int64 = 99
	testUserID int64 = 7
)

func newMatcher() *Matcher {
	return &Matcher{
		ChatID:    testChatID,
		SelfID:    testSelfID,
		ClockSkew: 120 * time.Second,
	}
}

func TestMatchExplicitReplyLink(t *testing.T) {
	// Question issued at sequence 100, timestamp T. A message with
	// inReplyTo=100, text "yes", timestamp T+5 must match.
	const issueTime = int64(1000)
	q := Question{ID: 100, IssueTime: issueTime, Mode: ModeStrict}

	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, issueTime+5, 100, "yes"),
	}

	m, ok := newMatcher().Match(batch, q)
	require.True(t, ok)
	require.NotNil(t, m.Message)

	reply := BuildReply(q, m)
	require.Len(t, reply.Items, 1)
	assert.Equal(t, "yes", reply.Items[0].Text)
}

func TestMatchReplyLinkIgnoresTimestamp(t *testing.T) {
	// An explicit reply link wins regardless of how stale the timestamp
	// looks, even outside the loose-mode skew window.
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeStrict}
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 1, 100, "late but linked"),
	}

	_, ok := newMatcher().Match(batch, q)
	assert.True(t, ok)
}

func TestStrictModeRejectsUnlinkedMessages(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeStrict}
	// Fresh, well-sequenced, right chat, right sender — but no reply link.
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 1005, 0, "hello"),
	}

	_, ok := newMatcher().Match(batch, q)
	assert.False(t, ok)
}

func TestLooseModeAcceptsWithinSkewWindow(t *testing.T) {
	// Clock skew tolerance 120s, question issued at T=1000. A message
	// stamped 995 with a higher message id is accepted (995 >= 880).
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 995, 0, "sure"),
	}

	m, ok := newMatcher().Match(batch, q)
	require.True(t, ok)
	assert.Equal(t, "sure", m.Message.Text)
}

func TestLooseModeRejectsOutsideSkewWindow(t *testing.T) {
	// Same as above but stamped 700: rejected (700 < 1000-120).
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 700, 0, "stale"),
	}

	_, ok := newMatcher().Match(batch, q)
	assert.False(t, ok)
}

func TestLooseModeRequiresHigherMessageID(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	// Fresh timestamp but a message id below the question's: a message
	// that predates the question on the conversation sequence.
	batch := []Update{
		textMsg(1, 99, testChatID, testUserID, 1005, 0, "earlier message"),
	}

	_, ok := newMatcher().Match(batch, q)
	assert.False(t, ok)
}

func TestMatchRejectsWrongChatAndSelf(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}

	otherChat := textMsg(1, 101, testChatID+1, testUserID, 1005, 100, "wrong room")
	fromSelf := textMsg(2, 102, testChatID, testSelfID, 1005, 100, "echo of the bot")

	_, ok := newMatcher().Match([]Update{otherChat, fromSelf}, q)
	assert.False(t, ok)
}

func TestMatchRejectsEmptyMessages(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	empty := Update{
		Seq: 1,
		Message: &IncomingMessage{
			MessageID: 101,
			ChatID:    testChatID,
			SenderID:  testUserID,
			SentAt:    1005,
			ReplyTo:   100,
		},
	}

	_, ok := newMatcher().Match([]Update{empty}, q)
	assert.False(t, ok)
}

func TestMatchPrefersNewestCandidate(t *testing.T) {
	// Two plausible replies in one batch: the human corrected themselves,
	// so the most recent one wins.
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 1001, 100, "first answer"),
		textMsg(2, 102, testChatID, testUserID, 1002, 100, "actually, this"),
	}

	m, ok := newMatcher().Match(batch, q)
	require.True(t, ok)
	assert.Equal(t, "actually, this", m.Message.Text)
}

func TestButtonClickMatchesOnlyItsQuestion(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}

	foreign := Update{Seq: 1, Click: &ButtonClick{ID: "cb-1", MessageID: 55, Data: "nope"}}
	ours := Update{Seq: 2, Click: &ButtonClick{ID: "cb-2", MessageID: 100, Data: "Approve"}}

	m, ok := newMatcher().Match([]Update{foreign, ours}, q)
	require.True(t, ok)
	require.NotNil(t, m.Click)
	assert.Equal(t, "cb-2", m.Click.ID)

	_, ok = newMatcher().Match([]Update{foreign}, q)
	assert.False(t, ok)
}

func TestMatchSkipsBareUpdates(t *testing.T) {
	// Updates that are neither message nor click (edits etc.) are inert.
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	batch := []Update{
		{Seq: 1},
		textMsg(2, 102, testChatID, testUserID, 1002, 100, "reply"),
		{Seq: 3},
	}

	m, ok := newMatcher().Match(batch, q)
	require.True(t, ok)
	assert.Equal(t, "reply", m.Message.Text)
}

func TestMatchIsDeterministic(t *testing.T) {
	q := Question{ID: 100, IssueTime: 1000, Mode: ModeLoose}
	batch := []Update{
		textMsg(1, 101, testChatID, testUserID, 1001, 0, "a"),
		{Seq: 2, Click: &ButtonClick{ID: "cb", MessageID: 100, Data: "b"}},
		textMsg(3, 103, testChatID, testUserID, 1003, 0, "c"),
	}

	first, ok1 := newMatcher().Match(batch, q)
	second, ok2 := newMatcher().Match(batch, q)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestBuildReplyFlattensMessageContent(t *testing.T) {
	q := Question{ID: 100}
	m := &Match{Message: &IncomingMessage{
		MessageID: 101,
		ChatID:    testChatID,
		SenderID:  testUserID,
		Caption:   "see attached",
		Media: []MediaRef{
			{Kind: MediaPhoto, FileID: "f1"},
			{Kind: MediaVoice, FileID: "f2"},
		},
	}}

	reply := BuildReply(q, m)
	require.Len(t, reply.Items, 3)
	assert.Equal(t, "see attached", reply.Items[0].Text)
	require.NotNil(t, reply.Items[1].Media)
	assert.Equal(t, MediaPhoto, reply.Items[1].Media.Kind)
	// Unsupported kinds surface as an explanatory text item.
	assert.Contains(t, reply.Items[2].Text, "voice message")
}

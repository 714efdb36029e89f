package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEmpty(t *testing.T) {
	var l Ledger
	_, ok := l.CurrentQuestion()
	assert.False(t, ok)
	_, ok = l.LookupReply(1)
	assert.False(t, ok)
}

func TestLedgerCurrentQuestionOverwrite(t *testing.T) {
	var l Ledger
	l.RecordQuestion(Question{ID: 1, IssueTime: 10, Mode: ModeStrict})
	l.RecordQuestion(Question{ID: 2, IssueTime: 20, Mode: ModeLoose, Urgent: true})

	q, ok := l.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, 2, q.ID)
	assert.Equal(t, ModeLoose, q.Mode)
	assert.True(t, q.Urgent)
}

func TestLedgerReplyCacheKeyedByQuestion(t *testing.T) {
	var l Ledger
	r1 := &Reply{QuestionID: 1, Items: []ContentItem{{Text: "one"}}}
	l.RecordReply(1, r1)

	got, ok := l.LookupReply(1)
	require.True(t, ok)
	assert.Equal(t, r1, got)

	// The single cache slot only answers for its own key.
	_, ok = l.LookupReply(2)
	assert.False(t, ok)

	// A reply for a different question displaces the slot.
	r2 := &Reply{QuestionID: 2, Items: []ContentItem{{Text: "two"}}}
	l.RecordReply(2, r2)
	_, ok = l.LookupReply(1)
	assert.False(t, ok)
	got, ok = l.LookupReply(2)
	require.True(t, ok)
	assert.Equal(t, r2, got)
}

func TestLedgerFirstReplyWins(t *testing.T) {
	// At most one reply is ever bound to a question; later matches for
	// the same id are ignored.
	var l Ledger
	first := &Reply{QuestionID: 1, Items: []ContentItem{{Text: "first"}}}
	second := &Reply{QuestionID: 1, Items: []ContentItem{{Text: "second"}}}

	l.RecordReply(1, first)
	l.RecordReply(1, second)

	got, ok := l.LookupReply(1)
	require.True(t, ok)
	assert.Equal(t, "first", got.Items[0].Text)
}

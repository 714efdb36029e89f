package bridge

import "sync"

// Ledger is the process-lifetime record of the most recently issued question
// and the most recently resolved reply. It holds exactly one question slot
// and one cached reply keyed by question id; there is no history and no
// eviction. It exists so a follow-up call can either fetch a cached reply
// instantly or resume waiting on a question whose original wait was
// abandoned by the caller (a client-side timeout, for example).
//
// All mutation goes through this type; callers share a single instance and
// the mutex is the one exclusion boundary the core needs.
type Ledger struct {
	mu      sync.Mutex
	current *Question
	replyID int
	reply   *Reply
}

// RecordQuestion overwrites the current-question slot. A session that is
// already polling keeps its own Question snapshot, so superseding the slot
// does not disturb an in-flight wait.
func (l *Ledger) RecordQuestion(q Question) {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := q
	l.current = &snapshot
}

// CurrentQuestion returns the most recently recorded question, if any.
func (l *Ledger) CurrentQuestion() (Question, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Question{}, false
	}
	return *l.current, true
}

// RecordReply caches the resolved reply for a question id, displacing any
// previously cached reply. Once a reply is bound to a question it stays
// bound; a later RecordReply for the same id is ignored so the first match
// wins even if two sessions race.
func (l *Ledger) RecordReply(questionID int, r *Reply) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reply != nil && l.replyID == questionID {
		return
	}
	l.replyID = questionID
	l.reply = r
}

// LookupReply returns the cached reply for the given question id, if the
// cache currently holds one for exactly that id.
func (l *Ledger) LookupReply(questionID int) (*Reply, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reply == nil || l.replyID != questionID {
		return nil, false
	}
	return l.reply, true
}

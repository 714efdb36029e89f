package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LivenessFunc is the fire-and-forget "still waiting" signal a session emits
// while polling. Errors are swallowed: a caller with no consumer for the
// signal must not affect the wait.
type LivenessFunc func(elapsed, remaining time.Duration) error

// WaitSession orchestrates one blocking wait for a reply: it computes the
// deadline from the timeout policy, drives the long-poll loop, runs the
// matcher over every batch, and emits periodic liveness signals so the
// caller's own unrelated timeout does not fire mid-wait.
//
// State machine: Polling -> Matched | TimedOut | Failed. Matched and
// TimedOut are the two outcomes reachable in normal operation; Failed would
// require the poller to surface a non-cancellation error, which its backoff
// contract prevents, so it is documented as an invariant rather than a path.
type WaitSession struct {
	transport Transport
	poller    *Poller
	matcher   *Matcher
	ledger    *Ledger
	policy    *TimeoutPolicy

	livenessEvery time.Duration
	liveness      LivenessFunc

	now func() time.Time
}

// NewWaitSession wires a session around the shared ledger and cursor-backed
// poller. liveness may be nil; livenessEvery <= 0 disables the signal.
func NewWaitSession(t Transport, p *Poller, m *Matcher, l *Ledger, policy *TimeoutPolicy,
	livenessEvery time.Duration, liveness LivenessFunc) *WaitSession {
	return &WaitSession{
		transport:     t,
		poller:        p,
		matcher:       m,
		ledger:        l,
		policy:        policy,
		livenessEvery: livenessEvery,
		liveness:      liveness,
		now:           time.Now,
	}
}

// Await blocks until the question is answered or its deadline passes. The
// question is captured by value at entry: a second invocation overwriting
// the ledger's current-question slot does not redirect this session.
//
// A cached reply for the same question id short-circuits the wait without a
// single fetch. On a button-click match, the click is acknowledged exactly
// once before the reply is returned.
func (s *WaitSession) Await(ctx context.Context, q Question) (*Reply, error) {
	if r, ok := s.ledger.LookupReply(q.ID); ok {
		slog.Debug("reply served from ledger cache", "question_id", q.ID)
		return r, nil
	}

	timeout := s.policy.Select(q.Urgent)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.liveness != nil && s.livenessEvery > 0 {
		go s.emitLiveness(waitCtx, timeout)
	}

	slog.Info("waiting for reply",
		"question_id", q.ID, "mode", q.Mode, "urgent", q.Urgent, "timeout", timeout)

	for {
		batch, err := s.poller.Next(waitCtx)
		if err != nil {
			// The caller backing out takes precedence over our own deadline.
			if cerr := ctx.Err(); cerr != nil && !errors.Is(cerr, context.DeadlineExceeded) {
				return nil, cerr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Duration: timeout, Urgent: q.Urgent}
			}
			return nil, fmt.Errorf("update feed failed: %w", err)
		}

		m, ok := s.matcher.Match(batch, q)
		if !ok {
			continue
		}
		if m.Click != nil {
			if err := s.transport.AckButtonClick(waitCtx, m.Click.ID); err != nil {
				slog.Warn("button click ack failed", "click_id", m.Click.ID, "error", err)
			}
		}
		reply := BuildReply(q, m)
		s.ledger.RecordReply(q.ID, reply)
		slog.Info("reply matched", "question_id", q.ID, "items", len(reply.Items), "via_button", m.Click != nil)
		return reply, nil
	}
}

// emitLiveness ticks at the configured cadence until the wait ends. Delivery
// is best effort; a failing or panicking callback never disturbs polling.
func (s *WaitSession) emitLiveness(ctx context.Context, total time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("liveness callback panicked", "panic", r)
		}
	}()

	start := s.now()
	ticker := time.NewTicker(s.livenessEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := s.now().Sub(start)
			remaining := total - elapsed
			if remaining < 0 {
				remaining = 0
			}
			if err := s.liveness(elapsed, remaining); err != nil {
				slog.Debug("liveness signal not delivered", "error", err)
			}
		}
	}
}

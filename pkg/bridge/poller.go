package bridge

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

const (
	// backoffFactorCap bounds the exponential growth of the retry delay.
	backoffFactorCap = 16
	// backoffJitterMax is the upper bound of the random jitter added to
	// every retry delay so concurrent pollers don't stampede the API.
	backoffJitterMax = 500 * time.Millisecond
	// backoffTotalCap is the hard ceiling on a single retry delay.
	backoffTotalCap = 30 * time.Second
)

// Poller wraps the transport's long-poll fetch with cursor bookkeeping and
// failure backoff. Every successful fetch advances the shared cursor with
// the highest sequence number seen, whether or not the batch contained a
// match, so no update is ever re-fetched or silently dropped.
type Poller struct {
	transport Transport
	cursor    *Cursor

	baseInterval time.Duration // backoff unit
	longPollWait time.Duration // bounded server-side wait per fetch

	failures int

	// Test seams. Production code never touches these.
	jitter func() time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller over the given transport. The cursor is shared
// process-wide; several sessions may construct pollers around the same one.
func NewPoller(t Transport, cursor *Cursor, baseInterval, longPollWait time.Duration) *Poller {
	return &Poller{
		transport:    t,
		cursor:       cursor,
		baseInterval: baseInterval,
		longPollWait: longPollWait,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(backoffJitterMax)))
		},
		sleep: sleepCtx,
	}
}

// Next blocks until one fetch succeeds or ctx is done, retrying transport
// failures with exponential backoff. The returned batch may be empty; the
// cursor has already been advanced past everything in it.
func (p *Poller) Next(ctx context.Context) ([]Update, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		floor, _ := p.cursor.NextFetchFloor()
		batch, err := p.transport.FetchUpdates(ctx, floor, p.longPollWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.failures++
			delay := p.backoffDelay()
			slog.Debug("update fetch failed, backing off",
				"error", err, "consecutive_failures", p.failures, "delay", delay)
			if serr := p.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			continue
		}
		p.failures = 0
		for _, u := range batch {
			p.cursor.Advance(u.Seq)
		}
		return batch, nil
	}
}

// backoffDelay computes the delay before the next retry: the base interval
// doubled per consecutive failure up to 16x, plus bounded jitter, capped at
// 30 seconds overall.
func (p *Poller) backoffDelay() time.Duration {
	factor := 1
	for i := 1; i < p.failures && factor < backoffFactorCap; i++ {
		factor *= 2
	}
	delay := p.baseInterval*time.Duration(factor) + p.jitter()
	if delay > backoffTotalCap {
		delay = backoffTotalCap
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

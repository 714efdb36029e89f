package bridge

import (
	"sync"
	"time"
)

// Default wait durations, used when configuration is absent or non-numeric.
const (
	DefaultUrgentTimeout  = 10 * time.Minute
	DefaultRelaxedTimeout = 3 * time.Minute
)

// TimeoutPolicy maps the urgency flag of a question to one of two configured
// wait durations. It is guarded so the configuration reload path can swap
// durations while a session is running; a session reads its deadline once at
// start, so a live update only affects waits that begin afterwards.
type TimeoutPolicy struct {
	mu      sync.RWMutex
	urgent  time.Duration
	relaxed time.Duration
}

// NewTimeoutPolicy builds a policy from the two configured durations,
// substituting defaults for anything non-positive.
func NewTimeoutPolicy(urgent, relaxed time.Duration) *TimeoutPolicy {
	p := &TimeoutPolicy{}
	p.Update(urgent, relaxed)
	return p
}

// Select returns the wait duration for the given urgency.
func (p *TimeoutPolicy) Select(urgent bool) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if urgent {
		return p.urgent
	}
	return p.relaxed
}

// Update replaces both durations, again substituting defaults for
// non-positive values.
func (p *TimeoutPolicy) Update(urgent, relaxed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if urgent <= 0 {
		urgent = DefaultUrgentTimeout
	}
	if relaxed <= 0 {
		relaxed = DefaultRelaxedTimeout
	}
	p.urgent = urgent
	p.relaxed = relaxed
}

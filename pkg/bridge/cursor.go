package bridge

import "sync"

// Cursor tracks the highest update sequence number already consumed, so the
// feed is never re-delivered or skipped. It only moves forward.
type Cursor struct {
	mu  sync.Mutex
	set bool
	max int64
}

// Advance raises the cursor to observedMax if it is higher than the current
// value. Calling it again with the same or a smaller value is a no-op.
func (c *Cursor) Advance(observedMax int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || observedMax > c.max {
		c.max = observedMax
		c.set = true
	}
}

// NextFetchFloor returns the lowest sequence number the next fetch is
// allowed to return (cursor + 1). ok is false when no update has been
// observed yet, in which case the fetch floor is unbounded.
func (c *Cursor) NextFetchFloor() (floor int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return 0, false
	}
	return c.max + 1, true
}

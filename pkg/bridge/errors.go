package bridge

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError is raised when a wait session's deadline passes with no
// matching reply. It is a typed condition, not a string: callers branch on
// it with errors.As so a low-urgency timeout can be softened into a canned
// "no reply yet" answer while a high-urgency one propagates as a failure.
type TimeoutError struct {
	Duration time.Duration // the configured wait that elapsed
	Urgent   bool          // which policy branch produced it
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply received within %s", e.Duration)
}

// AsTimeout unwraps err into a *TimeoutError if it carries one.
func AsTimeout(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

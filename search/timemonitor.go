package search

import (
	"context"
	"time"
)

// TimeMonitor enforces the wall-clock deadline named in §5's suspension
// points, grounded on graph/timeout.go's getNodeTimeout/
// executeNodeWithTimeout pattern: a single duration checked at a fixed
// point in the loop rather than wrapping every call in its own
// context.WithTimeout.
type TimeMonitor struct {
	deadline time.Time
	enabled  bool
}

// NewTimeMonitor starts a TimeMonitor with the given wall-clock budget.
// A zero budget disables the deadline, matching Options.Deadline's
// "zero means no deadline" contract.
func NewTimeMonitor(budget time.Duration, now time.Time) *TimeMonitor {
	if budget <= 0 {
		return &TimeMonitor{}
	}
	return &TimeMonitor{deadline: now.Add(budget), enabled: true}
}

// Check returns a *SearchError with KindInterrupted if ctx has been
// canceled, or with KindTimeout if the deadline has passed. Called once
// per Step (§4.2 step 7), after sender selection.
func (m *TimeMonitor) Check(ctx context.Context, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return &SearchError{Kind: KindInterrupted, Message: "context canceled", Cause: err}
	}
	if !m.enabled {
		return nil
	}
	if now.After(m.deadline) {
		return &SearchError{Kind: KindTimeout, Message: "wall-clock deadline exceeded"}
	}
	return nil
}

// Remaining reports the time left before the deadline, or the largest
// representable duration if no deadline is set.
func (m *TimeMonitor) Remaining(now time.Time) time.Duration {
	if !m.enabled {
		return time.Duration(1<<63 - 1)
	}
	return m.deadline.Sub(now)
}

package host

import (
	"context"
	"time"
)

// TickLimiter paces a loop to a fixed tick rate.
type TickLimiter struct {
	target time.Duration
	next   time.Time
}

// NewTickLimiter creates a limiter for hz ticks per second. hz <= 0 disables
// pacing.
func NewTickLimiter(hz int) *TickLimiter {
	l := &TickLimiter{}
	if hz > 0 {
		l.target = time.Second / time.Duration(hz)
	}
	return l
}

// Interval returns the target tick duration, or zero when unpaced.
func (l *TickLimiter) Interval() time.Duration { return l.target }

// Wait blocks until the next tick is due or ctx is done.
func (l *TickLimiter) Wait(ctx context.Context) error {
	if l.target <= 0 {
		l.next = time.Time{}
		return ctx.Err()
	}

	if l.next.IsZero() {
		l.next = time.Now().Add(l.target)
	} else {
		l.next = l.next.Add(l.target)
	}

	if remaining := time.Until(l.next); remaining > 0 {
		t := time.NewTimer(remaining)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	// More than a full interval behind: restart the schedule rather than burst.
	if late := -time.Until(l.next); late > l.target {
		l.next = time.Now().Add(l.target)
	}
	return nil
}

package debate

import (
	"fmt"
	"time"
)

// IsOpen reports whether the debate accepts joins, votes and edits at now.
func IsOpen(d *Debate, now time.Time) bool {
	return now.Before(d.EndTime())
}

// Remaining is the time left until the debate closes, never negative.
func Remaining(d *Debate, now time.Time) time.Duration {
	left := d.EndTime().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// FormatRemaining renders a countdown for display.
func FormatRemaining(left time.Duration) string {
	if left <= 0 {
		return "Debate has ended"
	}
	secs := int64(left / time.Second)
	days := secs / 86400
	hours := secs / 3600 % 24
	mins := secs / 60 % 60
	return fmt.Sprintf("%dd %dh %dm %ds remaining", days, hours, mins, secs%60)
}

// Clock tracks one debate's open-to-closed transition. Status is always
// recomputed from the debate; the clock only remembers whether the closing
// edge has been reported.
type Clock struct {
	debate   *Debate
	reported bool
}

// NewClock returns a clock for d.
func NewClock(d *Debate) *Clock {
	return &Clock{debate: d}
}

// Open reports whether the debate is open at now.
func (c *Clock) Open(now time.Time) bool { return IsOpen(c.debate, now) }

// Advance returns true exactly once: on the first call at which the debate
// is closed, including a first call made after the debate already ended.
func (c *Clock) Advance(now time.Time) bool {
	if c.reported || c.Open(now) {
		return false
	}
	c.reported = true
	return true
}

package session

import (
	"fmt"
	"time"
)

// ReplyWindow is how long a participant has to post after joining a side.
const ReplyWindow = 5 * time.Minute

// Deadline is the reply countdown started by a join. It is advisory: expiry
// produces a notice, never a submission block. Once expired or cleared it
// stays that way.
type Deadline struct {
	At      time.Time
	expired bool
	cleared bool
}

// StartDeadline begins a countdown at now.
func StartDeadline(now time.Time) *Deadline {
	return &Deadline{At: now.Add(ReplyWindow)}
}

// Active reports whether the countdown is still running.
func (d *Deadline) Active() bool {
	return d != nil && !d.expired && !d.cleared
}

// Remaining is the time left, zero once expired or cleared.
func (d *Deadline) Remaining(now time.Time) time.Duration {
	if !d.Active() {
		return 0
	}
	if left := d.At.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Display renders the countdown as mm:ss.
func (d *Deadline) Display(now time.Time) string {
	secs := int(d.Remaining(now).Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Advance returns true exactly once, when now first reaches At.
func (d *Deadline) Advance(now time.Time) bool {
	if !d.Active() || now.Before(d.At) {
		return false
	}
	d.expired = true
	return true
}

// Clear stops a running countdown and reports whether it was running.
func (d *Deadline) Clear() bool {
	if !d.Active() {
		return false
	}
	d.cleared = true
	return true
}

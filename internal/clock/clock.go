// Package clock records process start time and reports uptime.
package clock

import (
	"fmt"
	"time"
)

// Clock abstracts the wall clock so tests can control time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// Tracker remembers the instant it was created.
type Tracker struct {
	clock Clock
	start time.Time
}

// NewTracker starts tracking uptime from now. A nil clock means System.
func NewTracker(c Clock) *Tracker {
	if c == nil {
		c = System{}
	}
	return &Tracker{clock: c, start: c.Now()}
}

// StartedAt returns the recorded start instant.
func (t *Tracker) StartedAt() time.Time {
	return t.start
}

// Uptime returns the elapsed time since the tracker was created.
func (t *Tracker) Uptime() time.Duration {
	d := t.clock.Now().Sub(t.start)
	if d < 0 {
		return 0
	}
	return d
}

// FormatUptime renders d as "{h}h {m}m {s}s". Hours are not folded into days.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// Package clock provides a schedulable time source so timing-sensitive
// components can run against virtual time in tests.
package clock

import "time"

// Timer is a scheduled callback supporting cancel-and-reschedule semantics.
type Timer interface {
	// Reset re-arms the timer to fire after d, cancelling any pending firing.
	// It reports whether the timer was still pending.
	Reset(d time.Duration) bool
	// Stop cancels the timer, reporting whether it was still pending.
	Stop() bool
}

// Clock abstracts the time source used by the adapter.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Wall is the production clock backed by the runtime timers.
type Wall struct{}

// New returns the production wall clock.
func New() Wall {
	return Wall{}
}

// Now returns the current wall time.
func (Wall) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the runtime timer wheel.
func (Wall) AfterFunc(d time.Duration, fn func()) Timer {
	return wallTimer{timer: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	timer *time.Timer
}

func (t wallTimer) Reset(d time.Duration) bool {
	return t.timer.Reset(d)
}

func (t wallTimer) Stop() bool {
	return t.timer.Stop()
}

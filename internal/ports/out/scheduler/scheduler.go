package scheduler

import "time"

// Scheduler runs a function once after a delay.
// Using an interface lets tests observe and fire scheduled work deterministically.
type Scheduler interface {
	// AfterFunc schedules fn to run after d. The returned stop function cancels
	// the call if it has not run yet and reports whether it did so.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

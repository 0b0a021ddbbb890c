package scheduler

import (
	"sync"
	"time"
)

// Call is one scheduled invocation.
type Call struct {
	Delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// Manual records scheduled calls and runs them only when told to.
// It is safe for concurrent use.
type Manual struct {
	mu    sync.Mutex
	calls []*Call
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) func() bool {
	c := &Call{Delay: d, fn: fn}
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c.fired || c.stopped {
			return false
		}
		c.stopped = true
		return true
	}
}

// Pending returns the delays of calls that are neither fired nor stopped.
func (m *Manual) Pending() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, c := range m.calls {
		if !c.fired && !c.stopped {
			out = append(out, c.Delay)
		}
	}
	return out
}

// Scheduled returns the total number of AfterFunc calls, including fired and stopped ones.
func (m *Manual) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// FireAll runs every pending call in scheduling order and returns how many ran.
func (m *Manual) FireAll() int {
	m.mu.Lock()
	var due []*Call
	for _, c := range m.calls {
		if !c.fired && !c.stopped {
			c.fired = true
			due = append(due, c)
		}
	}
	m.mu.Unlock()

	for _, c := range due {
		c.fn()
	}
	return len(due)
}

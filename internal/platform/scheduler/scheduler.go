package scheduler

import (
	"sync"
	"time"
)

// Timer is the production scheduler.Scheduler backed by time.AfterFunc.
//
// Wait lets short-lived processes (the CLI) let pending redirects run before exiting.
type Timer struct {
	wg sync.WaitGroup
}

func NewTimer() *Timer { return &Timer{} }

func (t *Timer) AfterFunc(d time.Duration, fn func()) func() bool {
	t.wg.Add(1)
	var once sync.Once
	done := func() { once.Do(t.wg.Done) }

	tm := time.AfterFunc(d, func() {
		defer done()
		fn()
	})
	return func() bool {
		stopped := tm.Stop()
		if stopped {
			done()
		}
		return stopped
	}
}

// Wait blocks until every scheduled function has run or been stopped.
func (t *Timer) Wait() {
	t.wg.Wait()
}

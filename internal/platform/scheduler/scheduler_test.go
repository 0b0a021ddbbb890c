package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimer_WaitBlocksUntilFired(t *testing.T) {
	t.Parallel()

	s := NewTimer()
	var ran atomic.Int32
	s.AfterFunc(10*time.Millisecond, func() { ran.Add(1) })
	s.Wait()
	if ran.Load() != 1 {
		t.Fatalf("ran=%d, want 1", ran.Load())
	}
}

func TestTimer_StopReleasesWait(t *testing.T) {
	t.Parallel()

	s := NewTimer()
	var ran atomic.Int32
	stop := s.AfterFunc(time.Hour, func() { ran.Add(1) })
	if !stop() {
		t.Fatalf("stop()=false, want true")
	}
	if stop() {
		t.Fatalf("second stop()=true, want false")
	}

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after stop")
	}
	if ran.Load() != 0 {
		t.Fatalf("stopped function ran")
	}
}

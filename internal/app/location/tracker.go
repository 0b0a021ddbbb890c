package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
)

const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned by Current when no fix arrived in time.
var ErrTimeout = errors.New("location request timed out")

// Tracker owns the device's last known position and the single active watch.
type Tracker struct {
	provider location.Provider
	timeout  time.Duration
	log      *slog.Logger

	mu   sync.Mutex
	last *domain.Position
	stop context.CancelFunc
	done chan struct{}
}

func NewTracker(p location.Provider, timeout time.Duration, log *slog.Logger) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Tracker{provider: p, timeout: timeout, log: log}
}

// Current asks the provider for one fix and gives up after timeout.
func (t *Tracker) Current(ctx context.Context, timeout time.Duration) (domain.Position, error) {
	if timeout <= 0 {
		timeout = t.timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pos, err := t.provider.Current(cctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.Position{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return domain.Position{}, err
	}
	return pos, nil
}

// BestEffort returns a fix within the configured timeout, or nil. It never
// fails: callers attach the result when present and proceed without it otherwise.
func (t *Tracker) BestEffort(ctx context.Context) *domain.Position {
	pos, err := t.Current(ctx, t.timeout)
	if err != nil {
		t.log.InfoContext(ctx, "proceeding without location", slog.String("error", err.Error()))
		return nil
	}
	return &pos
}

// StartWatch begins the continuous watch. The watch outlives ctx and runs
// until StopWatch. Starting while a watch is active does nothing.
func (t *Tracker) StartWatch(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return nil
	}

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch, err := t.provider.Watch(wctx)
	if err != nil {
		cancel()
		return fmt.Errorf("start location watch: %w", err)
	}

	done := make(chan struct{})
	t.stop, t.done = cancel, done
	go t.consume(ch, done)
	return nil
}

func (t *Tracker) consume(ch <-chan domain.Position, done chan struct{}) {
	defer close(done)
	for pos := range ch {
		p := pos
		t.mu.Lock()
		t.last = &p
		t.mu.Unlock()
	}
}

// StopWatch ends the active watch, if any, and waits for it to wind down.
func (t *Tracker) StopWatch() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

func (t *Tracker) Watching() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// Last returns the most recent position delivered by the watch.
func (t *Tracker) Last() (domain.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return domain.Position{}, false
	}
	return *t.last, true
}

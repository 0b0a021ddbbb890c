package location

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
)

// Provider is a scripted location.Provider for tests.
//
// Current returns Fix or Err. When Block is true, Current waits for ctx to end,
// which simulates a device that never answers.
type Provider struct {
	mu    sync.Mutex
	Fix   domain.Position
	Err   error
	Block bool

	watchers []chan domain.Position
}

var _ location.Provider = (*Provider)(nil)

func (p *Provider) Current(ctx context.Context) (domain.Position, error) {
	p.mu.Lock()
	fix, err, block := p.Fix, p.Err, p.Block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.Position{}, ctx.Err()
	}
	if err != nil {
		return domain.Position{}, err
	}
	return fix, nil
}

func (p *Provider) Watch(ctx context.Context) (<-chan domain.Position, error) {
	p.mu.Lock()
	if p.Err != nil {
		err := p.Err
		p.mu.Unlock()
		return nil, err
	}
	ch := make(chan domain.Position, 8)
	p.watchers = append(p.watchers, ch)
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, w := range p.watchers {
			if w == ch {
				p.watchers = append(p.watchers[:i], p.watchers[i+1:]...)
				close(ch)
				break
			}
		}
	}()
	return ch, nil
}

// Emit pushes pos to every active watcher. A watcher whose buffer is full misses the fix.
func (p *Provider) Emit(pos domain.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.watchers {
		select {
		case w <- pos:
		default:
		}
	}
}

// Watchers returns the number of active watches.
func (p *Provider) Watchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}

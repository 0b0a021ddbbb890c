package geo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
)

// Static reports a fixed, operator-configured position. It serves terminals
// and kiosks that have no positioning hardware.
type Static struct {
	lat, lon float64
	accuracy *float64
	clock    clock.Clock
	interval time.Duration
}

var _ location.Provider = (*Static)(nil)

// NewStatic returns a provider that always reports (lat, lon). Watch re-emits
// the position every interval.
func NewStatic(lat, lon float64, accuracyMeters *float64, clk clock.Clock, interval time.Duration) *Static {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Static{lat: lat, lon: lon, accuracy: accuracyMeters, clock: clk, interval: interval}
}

func (s *Static) fix() domain.Position {
	return domain.Position{
		Latitude:   s.lat,
		Longitude:  s.lon,
		Accuracy:   s.accuracy,
		CapturedAt: s.clock.Now(),
	}
}

func (s *Static) Current(ctx context.Context) (domain.Position, error) {
	if err := ctx.Err(); err != nil {
		return domain.Position{}, err
	}
	return s.fix(), nil
}

func (s *Static) Watch(ctx context.Context) (<-chan domain.Position, error) {
	ch := make(chan domain.Position, 1)
	go func() {
		defer close(ch)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case ch <- s.fix():
			case <-ctx.Done():
				return
			}
			select {
			case <-t.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

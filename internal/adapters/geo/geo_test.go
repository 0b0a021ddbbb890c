package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
)

func TestStatic_CurrentAndWatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p := NewStatic(37.8, -122.2, nil, memclock.NewManualClock(now), time.Hour)

	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() err=%v", err)
	}
	if got.Latitude != 37.8 || got.Longitude != -122.2 || !got.CapturedAt.Equal(now) {
		t.Fatalf("Current()=%+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() err=%v", err)
	}
	select {
	case pos := <-ch:
		if pos.Latitude != 37.8 {
			t.Fatalf("watch pos=%+v", pos)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fix from Watch")
	}
	cancel()
	for range ch {
	}
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	if _, err := (Unavailable{}).Current(context.Background()); !errors.Is(err, location.ErrUnavailable) {
		t.Fatalf("Current() err=%v", err)
	}
	if _, err := (Unavailable{}).Watch(context.Background()); !errors.Is(err, location.ErrUnavailable) {
		t.Fatalf("Watch() err=%v", err)
	}
}

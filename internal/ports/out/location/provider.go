package location

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

var (
	// ErrUnavailable indicates the device cannot report a location (no source, or permission denied).
	ErrUnavailable = errors.New("location unavailable")
)

// Provider is the device location source.
type Provider interface {
	// Current returns one fix. Implementations should honour ctx cancellation.
	Current(ctx context.Context) (domain.Position, error)

	// Watch streams fixes until ctx is canceled, then closes the channel.
	Watch(ctx context.Context) (<-chan domain.Position, error)
}

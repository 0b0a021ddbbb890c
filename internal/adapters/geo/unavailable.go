package geo

import (
	"context"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
)

// Unavailable is the provider for devices without a location source.
type Unavailable struct{}

var _ location.Provider = Unavailable{}

func (Unavailable) Current(context.Context) (domain.Position, error) {
	return domain.Position{}, location.ErrUnavailable
}

func (Unavailable) Watch(context.Context) (<-chan domain.Position, error) {
	return nil, location.ErrUnavailable
}

package location

import (
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

// Fix is the JSON shape of a position sent to the API.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FixFrom converts pos to its wire form; nil stays nil so the field is sent as null.
func FixFrom(pos *domain.Position) *Fix {
	if pos == nil {
		return nil
	}
	return &Fix{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Accuracy:  pos.Accuracy,
		Timestamp: pos.CapturedAt.UTC(),
	}
}

package domain

import "time"

// Position is a single device location fix.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the radius of uncertainty in meters; nil when the source does not report it.
	Accuracy   *float64
	CapturedAt time.Time
}

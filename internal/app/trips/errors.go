package trips

import "errors"

var (
	ErrMissingTripID    = errors.New("trip id is required")
	ErrMissingContactID = errors.New("contact id is required")
	ErrEmptyUpdate      = errors.New("nothing to update")
	// ErrDateOrder is returned when an update would end a trip before it starts.
	ErrDateOrder = errors.New("end date must be after start date")
)

package storage

import "errors"

var (
	// ErrInvalidKey indicates an empty key was passed to a store.
	ErrInvalidKey = errors.New("storage key must be non-empty")
)

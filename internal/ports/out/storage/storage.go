package storage

import "context"

// Key names one persisted entry.
type Key string

const (
	KeySession      Key = "session"
	KeyPendingToken Key = "oauth_pending_token"
	KeyDarkMode     Key = "dark_mode"
	KeyTrips        Key = "trips"
	KeySignupDraft  Key = "signup_draft"
)

// SessionKeys lists every entry owned by a login session. Logout and auth
// rejection delete all of them together.
var SessionKeys = []Key{KeySession, KeyPendingToken, KeyDarkMode, KeyTrips, KeySignupDraft}

// Storage is the persisted key/value store the client keeps its state in.
//
// Values are opaque bytes (JSON in practice). Each Put is a single overwrite
// from the caller's perspective.
type Storage interface {
	// Get returns the value for key. A missing key is reported with ok=false and a nil error.
	Get(ctx context.Context, key Key) (value []byte, ok bool, err error)
	Put(ctx context.Context, key Key, value []byte) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...Key) error
}

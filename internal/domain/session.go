package domain

import (
	"encoding/json"
	"time"
)

// Profile is the user-facing identity attached to a session.
// All fields are optional; nil means unknown or cleared.
type Profile struct {
	Name           *string
	Email          *string
	Username       *string
	ProfilePicture *string

	// Extra carries fields the server or an older client stored that this
	// client does not interpret. They are written back unchanged.
	Extra map[string]json.RawMessage
}

// Session is the client's persisted belief about who is logged in.
type Session struct {
	Credential string
	Profile    Profile

	// LastSyncedAt is the time of the last write; zero when unknown.
	LastSyncedAt time.Time
}

// Authenticated reports whether the session carries a usable credential.
func (s Session) Authenticated() bool { return s.Credential != "" }

// DisplayName returns the best available human label for the profile.
func (p Profile) DisplayName() string {
	for _, v := range []*string{p.Name, p.Username, p.Email} {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

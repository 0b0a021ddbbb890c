package auth

// State is where the client stands in the authentication lifecycle.
type State int

const (
	StateAnonymous State = iota
	// StatePendingOAuth: a provider credential arrived but its profile has not been fetched.
	StatePendingOAuth
	StateAuthenticated
	// StateExpired is terminal until a fresh login.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StatePendingOAuth:
		return "pending_oauth"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

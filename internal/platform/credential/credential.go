// Package credential inspects session credentials without trusting them.
//
// The client never verifies signatures: the server is the authority. Reading
// the exp claim only lets the client skip a request it already knows will be
// rejected.
package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt returns the exp claim of a JWT credential. ok is false for opaque
// credentials, malformed tokens, and tokens without exp.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

// Expired reports whether token is a JWT whose exp is at or before now.
// Opaque credentials are never considered expired here.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}

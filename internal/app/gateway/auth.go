package gateway

import (
	"net/http"
)

// Authenticator attaches the credential to an outgoing request. One
// implementation is chosen when the gateway is built; calls never mix them.
type Authenticator interface {
	Apply(req *http.Request, credential string)
	Name() string
}

// BearerAuth sends the credential as "Authorization: Bearer <credential>".
type BearerAuth struct{}

func (BearerAuth) Apply(req *http.Request, credential string) {
	req.Header.Set("Authorization", "Bearer "+credential)
}

func (BearerAuth) Name() string { return "bearer" }

// CookieAuth sends the credential as a session cookie, the way a browser
// holding a cookie-based session would.
type CookieAuth struct {
	CookieName string
}

func (a CookieAuth) Apply(req *http.Request, credential string) {
	name := a.CookieName
	if name == "" {
		name = "session"
	}
	req.AddCookie(&http.Cookie{Name: name, Value: credential})
}

func (CookieAuth) Name() string { return "cookie" }

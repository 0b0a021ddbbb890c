package devapi

import (
	"net/http"
	"strings"
)

// authMiddleware accepts the session token either as "Authorization: Bearer"
// or as the session cookie, so both client transports can be exercised.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if c, err := r.Cookie(s.opts.CookieName); err == nil {
				raw = strings.TrimSpace(c.Value)
			}
		}
		if raw == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials", nil)
			return
		}
		if s.revoked(raw) {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "session ended", nil)
			return
		}
		sub, err := s.tokens.Verify(raw)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}
		if _, ok := s.user(sub); !ok {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown user", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
	})
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, prefix))
}

func credentialFrom(r *http.Request, cookieName string) string {
	if tok := bearerToken(r); tok != "" {
		return tok
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

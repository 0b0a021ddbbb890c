package devapi

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// authorize stands in for an external OAuth provider: it signs in the user
// named by ?email= and redirects to redirect_uri with the session token
// attached as ?token=. Only loopback redirect targets are accepted.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || !isLoopback(target) {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "redirect_uri must be an http loopback URL", nil)
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(q.Get("email")))]
	s.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown user", nil)
		return
	}

	tok, err := s.tokens.Mint(id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not issue token", nil)
		return
	}
	tq := target.Query()
	tq.Set("token", tok)
	target.RawQuery = tq.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

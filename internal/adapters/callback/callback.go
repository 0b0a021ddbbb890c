// Package callback serves the loopback redirect target of the OAuth sign-in:
// the provider sends the browser to /callback?token=..., the token is absorbed
// into the session, and the page rewrites its own address without the token.
package callback

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/auth"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
)

// Absorber consumes the credential carried by a callback URL.
type Absorber interface {
	AbsorbCallback(ctx context.Context, pageURL string) (handled bool, err error)
}

// Result is the outcome of one callback.
type Result struct {
	Err error
}

type Server struct {
	absorber Absorber
	log      *slog.Logger
	results  chan Result
}

func New(a Absorber, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{absorber: a, log: log, results: make(chan Result, 1)}
}

// Results delivers the outcome of each absorbed callback. Outcomes nobody
// reads are dropped.
func (s *Server) Results() <-chan Result { return s.results }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/callback", s.handle)
	return r
}

var page = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p>{{.Message}}</p>
{{if .CleanURL}}<script>history.replaceState(null, "", {{.CleanURL}});</script>{{end}}
</body></html>
`))

type pageData struct {
	Title    string
	Message  string
	CleanURL string
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	pageURL := "http://" + r.Host + r.URL.RequestURI()
	handled, err := s.absorber.AbsorbCallback(r.Context(), pageURL)

	switch {
	case !handled:
		render(w, http.StatusBadRequest, pageData{Title: "Sign-in", Message: "No sign-in token was provided."})
		return
	case err != nil:
		s.log.WarnContext(r.Context(), "oauth callback rejected", slog.String("error", err.Error()))
		render(w, http.StatusUnauthorized, pageData{Title: "Sign-in failed", Message: "Authentication failed. You can close this window and try again."})
	default:
		render(w, http.StatusOK, pageData{
			Title:    "Signed in",
			Message:  "You are signed in. You can close this window.",
			CleanURL: auth.StripParam(r.URL.RequestURI(), auth.TokenParam),
		})
	}

	select {
	case s.results <- Result{Err: err}:
	default:
	}
}

func render(w http.ResponseWriter, status int, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = page.Execute(w, d)
}

package devapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the dev API HTTP router.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/auth/login", s.login)
	r.Get("/oauth/authorize", s.authorize)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/auth/profile", s.profile)
		r.Post("/auth/logout", s.logout)
		r.Put("/auth/change-password", s.changePassword)

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.listTrips)
			r.Post("/", s.createTrip)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.updateTrip)
				r.Put("/end", s.endTrip)
				r.Put("/safe", s.checkIn)
				r.Put("/contacts", s.addContact)
				r.Delete("/contacts/{contactId}", s.removeContact)
			})
		})

		r.Post("/alerts/sos", s.sos)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	return r
}

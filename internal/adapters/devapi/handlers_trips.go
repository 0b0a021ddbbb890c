package devapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	statusActive    = "active"
	statusCompleted = "Completed"
)

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	sub, _ := SubjectFromContext(r.Context())
	ts := s.tripsOf(sub)
	if ts == nil {
		ts = []Trip{}
	}
	if s.opts.WrapTripList {
		writeJSON(w, http.StatusOK, map[string]any{"trips": ts})
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type contactBody struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required_without=Email"`
	Email string `json:"email" validate:"omitempty,email"`
}

type createTripBody struct {
	Name        string        `json:"name" validate:"required"`
	Destination string        `json:"destination" validate:"required"`
	StartDate   time.Time     `json:"startDate" validate:"required"`
	EndDate     time.Time     `json:"endDate" validate:"required,gtfield=StartDate"`
	Contacts    []contactBody `json:"contacts" validate:"dive"`
}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var in createTripBody
	if !s.decode(w, r, &in) {
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	t := &Trip{
		ID:          uuid.NewString(),
		OwnerID:     sub,
		Name:        strings.TrimSpace(in.Name),
		Destination: strings.TrimSpace(in.Destination),
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Status:      statusActive,
		Contacts:    make([]Contact, 0, len(in.Contacts)),
		CreatedAt:   s.opts.Clock.Now().UTC(),
	}
	for _, c := range in.Contacts {
		t.Contacts = append(t.Contacts, Contact{ID: uuid.NewString(), Name: c.Name, Phone: c.Phone, Email: c.Email})
	}

	s.mu.Lock()
	s.trips[t.ID] = t
	out := cloneTrip(*t)
	s.mu.Unlock()

	s.log.InfoContext(r.Context(), "trip created", slog.String("trip_id", t.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"trip": out})
}

type updateTripBody struct {
	Name        *string    `json:"name" validate:"omitempty,min=1"`
	Destination *string    `json:"destination" validate:"omitempty,min=1"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (s *Server) updateTrip(w http.ResponseWriter, r *http.Request) {
	var in updateTripBody
	if !s.decode(w, r, &in) {
		return
	}
	s.mutateTrip(w, r, func(t *Trip) (int, string) {
		start, end := t.StartDate, t.EndDate
		if in.StartDate != nil {
			start = in.StartDate.UTC()
		}
		if in.EndDate != nil {
			end = in.EndDate.UTC()
		}
		if !end.After(start) {
			return http.StatusUnprocessableEntity, "endDate must be after startDate"
		}
		if in.Name != nil {
			t.Name = strings.TrimSpace(*in.Name)
		}
		if in.Destination != nil {
			t.Destination = strings.TrimSpace(*in.Destination)
		}
		t.StartDate, t.EndDate = start, end
		return 0, ""
	})
}

func (s *Server) endTrip(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Clock.Now().UTC()
	s.mutateTrip(w, r, func(t *Trip) (int, string) {
		t.Status = statusCompleted
		if t.EndDate.After(now) {
			t.EndDate = now
		}
		return 0, ""
	})
}

func (s *Server) addContact(w http.ResponseWriter, r *http.Request) {
	var in contactBody
	if !s.decode(w, r, &in) {
		return
	}
	s.mutateTrip(w, r, func(t *Trip) (int, string) {
		t.Contacts = append(t.Contacts, Contact{ID: uuid.NewString(), Name: in.Name, Phone: in.Phone, Email: in.Email})
		return 0, ""
	})
}

func (s *Server) removeContact(w http.ResponseWriter, r *http.Request) {
	sub, _ := SubjectFromContext(r.Context())
	id, cid := chi.URLParam(r, "id"), chi.URLParam(r, "contactId")

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok || t.OwnerID != sub {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Trip not found"})
		return
	}
	for i, c := range t.Contacts {
		if c.ID == cid {
			t.Contacts = append(t.Contacts[:i], t.Contacts[i+1:]...)
			writeOK(w)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Contact not found"})
}

type checkInBody struct {
	Location  *Location `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	var in checkInBody
	if !s.decode(w, r, &in) {
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	t, ok := s.trips[id]
	if ok && t.OwnerID == sub {
		s.checkIns = append(s.checkIns, CheckIn{TripID: id, UserID: sub, Location: in.Location, At: s.opts.Clock.Now().UTC()})
	}
	s.mu.Unlock()

	if !ok || t.OwnerID != sub {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Trip not found"})
		return
	}
	writeOK(w)
}

type sosBody struct {
	Location *Location `json:"location"`
	Message  *string   `json:"message"`
	TripID   *string   `json:"tripId"`
}

func (s *Server) sos(w http.ResponseWriter, r *http.Request) {
	var in sosBody
	if !s.decode(w, r, &in) {
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	a := Alert{UserID: sub, Location: in.Location, At: s.opts.Clock.Now().UTC()}
	if in.Message != nil {
		a.Message = *in.Message
	}
	if in.TripID != nil {
		a.TripID = *in.TripID
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()

	s.log.WarnContext(r.Context(), "sos received", slog.String("user_id", sub), slog.Bool("with_location", a.Location != nil))
	writeOK(w)
}

// mutateTrip applies fn to the caller's trip under the lock and answers with
// the updated trip. fn returns a non-zero status to reject the change.
func (s *Server) mutateTrip(w http.ResponseWriter, r *http.Request, fn func(t *Trip) (int, string)) {
	sub, _ := SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	t, ok := s.trips[id]
	if !ok || t.OwnerID != sub {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Trip not found"})
		return
	}
	draft := cloneTrip(*t)
	status, msg := fn(&draft)
	if status != 0 {
		s.mu.Unlock()
		writeError(w, r, status, "VALIDATION_ERROR", msg, nil)
		return
	}
	*t = draft
	out := cloneTrip(draft)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"trip": out})
}

// Package devapi is an in-memory implementation of the trip safety API for
// local development and end-to-end tests. It is not a production backend.
package devapi

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	sysclock "github.com/Overland-East-Bay/trip-safety-client/internal/platform/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
)

type Options struct {
	Secret     []byte
	Issuer     string
	TokenTTL   time.Duration
	CookieName string
	// WrapTripList answers GET /trips with {"trips": [...]} instead of a bare array.
	WrapTripList bool
	Clock        clock.Clock
	Logger       *slog.Logger
}

type User struct {
	ID             string
	Name           string
	Email          string
	Username       string
	Phone          string
	ProfilePicture string
	passwordHash   []byte
}

type Contact struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Trip struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"userId"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      string    `json:"status"`
	Contacts    []Contact `json:"contacts"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// CheckIn is a recorded "I'm safe" event.
type CheckIn struct {
	TripID   string
	UserID   string
	Location *Location
	At       time.Time
}

// Alert is a recorded SOS.
type Alert struct {
	UserID   string
	TripID   string
	Message  string
	Location *Location
	At       time.Time
}

// Server holds all dev API state.
type Server struct {
	opts   Options
	tokens *Issuer
	log    *slog.Logger

	mu            sync.Mutex
	users         map[string]*User
	byEmail       map[string]string
	trips         map[string]*Trip
	revokedTokens map[string]struct{}
	checkIns      []CheckIn
	alerts        []Alert
}

func NewServer(opts Options) *Server {
	if opts.Issuer == "" {
		opts.Issuer = "tripsafe-devapi"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(uuid.NewString())
	}
	if opts.Clock == nil {
		opts.Clock = sysclock.NewSystemClock()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		opts:          opts,
		tokens:        NewIssuer(opts.Secret, opts.Issuer, opts.TokenTTL, opts.Clock),
		log:           log,
		users:         map[string]*User{},
		byEmail:       map[string]string{},
		trips:         map[string]*Trip{},
		revokedTokens: map[string]struct{}{},
	}
}

var ErrDuplicateEmail = errors.New("email already registered")

// AddUser registers a user with the given password and returns its id.
func (s *Server) AddUser(u User, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return "", ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	u.passwordHash = hash
	s.users[u.ID] = &u
	s.byEmail[email] = u.ID
	return u.ID, nil
}

// IssueToken mints a session token for an existing user, as an OAuth provider would.
func (s *Server) IssueToken(userID string) (string, error) {
	if _, ok := s.user(userID); !ok {
		return "", fmt.Errorf("unknown user %q", userID)
	}
	return s.tokens.Mint(userID)
}

func (s *Server) CheckIns() []CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CheckIn(nil), s.checkIns...)
}

func (s *Server) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}

func (s *Server) user(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *Server) revoke(token string) {
	s.mu.Lock()
	s.revokedTokens[token] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revokedTokens[token]
	return ok
}

// tripsOf returns the user's trips ordered by start date.
func (s *Server) tripsOf(userID string) []Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Trip
	for _, t := range s.trips {
		if t.OwnerID == userID {
			out = append(out, cloneTrip(*t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

func cloneTrip(t Trip) Trip {
	t.Contacts = append([]Contact{}, t.Contacts...)
	return t
}

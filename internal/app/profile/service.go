package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/validate"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
)

type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Sessions is the session persistence profile operations touch.
type Sessions interface {
	Load(ctx context.Context) (domain.Session, bool)
	MergeProfile(ctx context.Context, patch session.ProfilePatch) (domain.Session, bool, error)
	DarkMode(ctx context.Context) bool
	SetDarkMode(ctx context.Context, on bool) error
}

// TripCache exposes the locally cached trip list for export.
type TripCache interface {
	Cached(ctx context.Context) []domain.Trip
}

type Deps struct {
	Gateway  Sender
	Sessions Sessions
	Trips    TripCache
	Notifier notifier.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

type Service struct {
	gw       Sender
	sessions Sessions
	trips    TripCache
	notify   notifier.Notifier
	clock    clock.Clock
	log      *slog.Logger
}

func NewService(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		gw:       deps.Gateway,
		sessions: deps.Sessions,
		trips:    deps.Trips,
		notify:   deps.Notifier,
		clock:    deps.Clock,
		log:      log,
	}
}

// Fetch reads the server's profile and merges it into the stored session.
// Fields the server omits keep their local values.
func (s *Service) Fetch(ctx context.Context) (domain.Session, error) {
	resp, err := s.gw.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/auth/profile"})
	if err == nil && !resp.OK() {
		err = gateway.ErrorFromResponse(resp)
	}
	if err != nil {
		s.fail(ctx, "Could not load profile", err)
		return domain.Session{}, err
	}
	p, err := session.DecodeProfile(resp.Body)
	if err != nil {
		s.fail(ctx, "Could not load profile", err)
		return domain.Session{}, err
	}
	sess, ok, err := s.sessions.MergeProfile(ctx, session.PatchFromProfile(p))
	if err != nil {
		return domain.Session{}, fmt.Errorf("store profile: %w", err)
	}
	if !ok {
		// Signed out while the request was in flight.
		return domain.Session{}, gateway.ErrAuthMissing
	}
	return sess, nil
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

func (s *Service) ChangePassword(ctx context.Context, current, next string) (bool, error) {
	in := passwordChange{CurrentPassword: current, NewPassword: next}
	if err := validate.Struct(in); err != nil {
		s.report(ctx, notifier.LevelError, err.Error())
		return false, err
	}
	resp, err := s.gw.Send(ctx, gateway.Request{Method: http.MethodPut, Path: "/auth/change-password", Body: in})
	if err == nil && !resp.OK() {
		err = gateway.ErrorFromResponse(resp)
	}
	if err != nil {
		s.fail(ctx, "Could not change password", err)
		return false, err
	}
	s.report(ctx, notifier.LevelSuccess, "Password changed")
	return true, nil
}

// UpdateLocal edits the stored profile without contacting the server.
func (s *Service) UpdateLocal(ctx context.Context, patch session.ProfilePatch) (domain.Session, bool, error) {
	if patch.Name.IsSpecified() && !patch.Name.IsNull() {
		if v, err := patch.Name.Get(); err == nil {
			patch.Name = nullable.NewNullableWithValue(domain.NormalizeHumanName(v))
		}
	}
	sess, ok, err := s.sessions.MergeProfile(ctx, patch)
	if err != nil {
		s.report(ctx, notifier.LevelError, "Could not save profile")
		return domain.Session{}, ok, err
	}
	if !ok {
		s.report(ctx, notifier.LevelWarning, "Please log in to continue.")
		return domain.Session{}, false, nil
	}
	s.report(ctx, notifier.LevelSuccess, "Profile updated")
	return sess, true, nil
}

type exportDocument struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Profile    json.RawMessage `json:"profile"`
	Trips      json.RawMessage `json:"trips"`
}

// Export writes the signed-in user's profile and cached trips as one JSON document.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	sess, ok := s.sessions.Load(ctx)
	if !ok || !sess.Authenticated() {
		s.report(ctx, notifier.LevelWarning, "Please log in to continue.")
		return gateway.ErrAuthMissing
	}
	prof, err := session.EncodeProfile(sess.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	var ts []domain.Trip
	if s.trips != nil {
		ts = s.trips.Cached(ctx)
	}
	tripsJSON, err := encodeTrips(ts)
	if err != nil {
		return fmt.Errorf("encode trips: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportDocument{ExportedAt: s.clock.Now().UTC(), Profile: prof, Trips: tripsJSON}); err != nil {
		s.report(ctx, notifier.LevelError, "Export failed")
		return fmt.Errorf("write export: %w", err)
	}
	s.report(ctx, notifier.LevelSuccess, "Data exported")
	return nil
}

func (s *Service) DarkMode(ctx context.Context) bool {
	return s.sessions.DarkMode(ctx)
}

// ToggleDarkMode flips the display preference and returns the new value.
func (s *Service) ToggleDarkMode(ctx context.Context) (bool, error) {
	on := !s.sessions.DarkMode(ctx)
	if err := s.sessions.SetDarkMode(ctx, on); err != nil {
		return !on, fmt.Errorf("save dark mode: %w", err)
	}
	return on, nil
}

func (s *Service) SetDarkMode(ctx context.Context, on bool) error {
	if err := s.sessions.SetDarkMode(ctx, on); err != nil {
		return fmt.Errorf("save dark mode: %w", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, action string, err error) {
	s.log.InfoContext(ctx, "profile call failed", slog.String("error", err.Error()))
	if msg, ok := gateway.UserMessage(err, action); ok {
		s.report(ctx, notifier.LevelError, msg)
	}
}

func (s *Service) report(ctx context.Context, level notifier.Level, msg string) {
	if s.notify != nil {
		s.notify.Notify(ctx, level, msg)
	}
}

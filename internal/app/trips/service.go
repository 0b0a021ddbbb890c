package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/oapi-codegen/runtime"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/validate"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Sender issues authenticated requests.
type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Locator supplies an optional position for check-ins.
type Locator interface {
	BestEffort(ctx context.Context) *domain.Position
}

type Deps struct {
	Gateway  Sender
	Storage  storage.Storage
	Locator  Locator
	Notifier notifier.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

type Options struct {
	// WebBaseURL is the root of the web app that serves trip tracking pages.
	WebBaseURL string
}

type Service struct {
	gw      Sender
	storage storage.Storage
	locator Locator
	notify  notifier.Notifier
	clock   clock.Clock
	log     *slog.Logger
	webBase string
}

func NewService(deps Deps, opts Options) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		gw:      deps.Gateway,
		storage: deps.Storage,
		locator: deps.Locator,
		notify:  deps.Notifier,
		clock:   deps.Clock,
		log:     log,
		webBase: opts.WebBaseURL,
	}
}

// List fetches the caller's trips and replaces the cached list.
func (s *Service) List(ctx context.Context) ([]domain.Trip, error) {
	resp, err := s.call(ctx, gateway.Request{Method: http.MethodGet, Path: "/trips"}, "Could not load trips")
	if err != nil {
		return nil, err
	}
	ts, err := decodeTripList(resp.Body)
	if err != nil {
		s.report(ctx, notifier.LevelError, "Could not load trips")
		return nil, err
	}
	s.writeCache(ctx, ts)
	return ts, nil
}

// Cached returns the trip list from the last successful List. An unreadable
// cache is dropped and reported as empty.
func (s *Service) Cached(ctx context.Context) []domain.Trip {
	b, ok, err := s.storage.Get(ctx, storage.KeyTrips)
	if err != nil || !ok {
		return nil
	}
	var dtos []tripDTO
	if err := json.Unmarshal(b, &dtos); err != nil {
		s.dropCache(ctx, err)
		return nil
	}
	ts, err := toDomainList(dtos)
	if err != nil {
		s.dropCache(ctx, err)
		return nil
	}
	return ts
}

// Current returns the cached trip in progress now, if any.
func (s *Service) Current(ctx context.Context) (domain.Trip, bool) {
	return domain.CurrentTrip(s.Cached(ctx), s.clock.Now())
}

func (s *Service) Create(ctx context.Context, in CreateTripInput) (domain.Trip, error) {
	in.Name = domain.NormalizeHumanName(in.Name)
	for i := range in.Contacts {
		in.Contacts[i] = normalizeContact(in.Contacts[i])
	}
	if in.Contacts == nil {
		in.Contacts = []ContactInput{}
	}
	if err := validate.Struct(in); err != nil {
		s.report(ctx, notifier.LevelError, err.Error())
		return domain.Trip{}, err
	}

	resp, err := s.call(ctx, gateway.Request{Method: http.MethodPost, Path: "/trips", Body: in}, "Could not create trip")
	if err != nil {
		return domain.Trip{}, err
	}
	t, err := s.tripFrom(ctx, resp, "Could not create trip")
	if err != nil {
		return domain.Trip{}, err
	}
	s.report(ctx, notifier.LevelSuccess, "Trip created")
	return t, nil
}

func (s *Service) Update(ctx context.Context, id domain.TripID, in UpdateTripInput) (domain.Trip, error) {
	if in.Name != nil {
		n := domain.NormalizeHumanName(*in.Name)
		in.Name = &n
	}
	if err := s.checkUpdate(in); err != nil {
		s.report(ctx, notifier.LevelError, err.Error())
		return domain.Trip{}, err
	}
	path, err := tripPath(id, "")
	if err != nil {
		return domain.Trip{}, err
	}

	resp, err := s.call(ctx, gateway.Request{Method: http.MethodPut, Path: path, Body: in}, "Could not update trip")
	if err != nil {
		return domain.Trip{}, err
	}
	t, err := s.tripFrom(ctx, resp, "Could not update trip")
	if err != nil {
		return domain.Trip{}, err
	}
	s.report(ctx, notifier.LevelSuccess, "Trip updated")
	return t, nil
}

func (s *Service) checkUpdate(in UpdateTripInput) error {
	if in.empty() {
		return ErrEmptyUpdate
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.StartDate != nil && in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		return ErrDateOrder
	}
	return nil
}

// End marks the trip finished.
func (s *Service) End(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	path, err := tripPath(id, "/end")
	if err != nil {
		return domain.Trip{}, err
	}
	resp, err := s.call(ctx, gateway.Request{Method: http.MethodPut, Path: path}, "Could not end trip")
	if err != nil {
		return domain.Trip{}, err
	}
	t, err := s.tripFrom(ctx, resp, "Could not end trip")
	if err != nil {
		return domain.Trip{}, err
	}
	s.report(ctx, notifier.LevelSuccess, "Trip ended. Welcome back!")
	return t, nil
}

// CheckIn tells the trip's contacts the traveller is safe. The current
// position is attached when one can be had in time; otherwise location is null.
func (s *Service) CheckIn(ctx context.Context, id domain.TripID) (bool, error) {
	path, err := tripPath(id, "/safe")
	if err != nil {
		return false, err
	}
	var pos *domain.Position
	if s.locator != nil {
		pos = s.locator.BestEffort(ctx)
	}
	body := checkInRequest{Timestamp: s.clock.Now().UTC()}
	if fix := location.FixFrom(pos); fix != nil {
		body.Location = fix
	}

	if _, err := s.call(ctx, gateway.Request{Method: http.MethodPut, Path: path, Body: body}, "Check-in failed"); err != nil {
		return false, err
	}
	s.report(ctx, notifier.LevelSuccess, "Check-in sent. Your contacts know you're safe.")
	return true, nil
}

func (s *Service) AddContact(ctx context.Context, id domain.TripID, in ContactInput) (domain.Trip, error) {
	in = normalizeContact(in)
	if err := validate.Struct(in); err != nil {
		s.report(ctx, notifier.LevelError, err.Error())
		return domain.Trip{}, err
	}
	path, err := tripPath(id, "/contacts")
	if err != nil {
		return domain.Trip{}, err
	}
	resp, err := s.call(ctx, gateway.Request{Method: http.MethodPut, Path: path, Body: in}, "Could not add contact")
	if err != nil {
		return domain.Trip{}, err
	}
	t, err := s.tripFrom(ctx, resp, "Could not add contact")
	if err != nil {
		return domain.Trip{}, err
	}
	s.report(ctx, notifier.LevelSuccess, "Contact added")
	return t, nil
}

func (s *Service) RemoveContact(ctx context.Context, id domain.TripID, contactID domain.ContactID) (bool, error) {
	if contactID == "" {
		return false, ErrMissingContactID
	}
	base, err := tripPath(id, "/contacts/")
	if err != nil {
		return false, err
	}
	cid, err := runtime.StyleParamWithLocation("simple", false, "contactId", runtime.ParamLocationPath, string(contactID))
	if err != nil {
		return false, fmt.Errorf("encode contact id: %w", err)
	}
	if _, err := s.call(ctx, gateway.Request{Method: http.MethodDelete, Path: base + cid}, "Could not remove contact"); err != nil {
		return false, err
	}

	cached := s.Cached(ctx)
	for i, t := range cached {
		if t.ID == id {
			cached[i] = t.WithoutContact(contactID)
			s.writeCache(ctx, cached)
			break
		}
	}
	s.report(ctx, notifier.LevelSuccess, "Contact removed")
	return true, nil
}

// ShareLink returns the public tracking page of a trip.
func (s *Service) ShareLink(id domain.TripID) (string, error) {
	if id == "" {
		return "", ErrMissingTripID
	}
	if s.webBase == "" {
		return "", errors.New("web base url is not configured")
	}
	link, err := url.JoinPath(s.webBase, "track", string(id))
	if err != nil {
		return "", fmt.Errorf("share link: %w", err)
	}
	return link, nil
}

// call sends req and turns failures into notifications. Non-2xx answers
// come back as *gateway.APIError.
func (s *Service) call(ctx context.Context, req gateway.Request, action string) (*gateway.Response, error) {
	resp, err := s.gw.Send(ctx, req)
	if err == nil && !resp.OK() {
		err = gateway.ErrorFromResponse(resp)
	}
	if err != nil {
		if msg, ok := gateway.UserMessage(err, action); ok {
			s.report(ctx, notifier.LevelError, msg)
		}
		s.log.InfoContext(ctx, "trip call failed",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return resp, nil
}

// tripFrom decodes a single-trip answer and folds it into the cache.
func (s *Service) tripFrom(ctx context.Context, resp *gateway.Response, action string) (domain.Trip, error) {
	t, err := decodeTrip(resp.Body)
	if err != nil {
		s.report(ctx, notifier.LevelError, action)
		return domain.Trip{}, err
	}
	s.upsertCache(ctx, t)
	return t, nil
}

func (s *Service) upsertCache(ctx context.Context, t domain.Trip) {
	cached := s.Cached(ctx)
	for i := range cached {
		if cached[i].ID == t.ID {
			cached[i] = t
			s.writeCache(ctx, cached)
			return
		}
	}
	s.writeCache(ctx, append(cached, t))
}

func (s *Service) writeCache(ctx context.Context, ts []domain.Trip) {
	b, err := encodeCache(ts)
	if err == nil {
		err = s.storage.Put(ctx, storage.KeyTrips, b)
	}
	if err != nil {
		s.log.WarnContext(ctx, "trip cache not updated", slog.String("error", err.Error()))
	}
}

func (s *Service) dropCache(ctx context.Context, cause error) {
	s.log.WarnContext(ctx, "discarding unreadable trip cache", slog.String("error", cause.Error()))
	if err := s.storage.Delete(ctx, storage.KeyTrips); err != nil {
		s.log.WarnContext(ctx, "trip cache not removed", slog.String("error", err.Error()))
	}
}

func (s *Service) report(ctx context.Context, level notifier.Level, msg string) {
	if s.notify != nil {
		s.notify.Notify(ctx, level, msg)
	}
}

// tripPath builds /trips/{id}<suffix> with the id path-escaped.
func tripPath(id domain.TripID, suffix string) (string, error) {
	if id == "" {
		return "", ErrMissingTripID
	}
	p, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, string(id))
	if err != nil {
		return "", fmt.Errorf("encode trip id: %w", err)
	}
	return "/trips/" + p + suffix, nil
}

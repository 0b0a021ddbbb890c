package alerts

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
)

type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

type Locator interface {
	BestEffort(ctx context.Context) *domain.Position
}

type Deps struct {
	Gateway  Sender
	Locator  Locator
	Notifier notifier.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

// SOS is an emergency alert. Both fields are optional.
type SOS struct {
	Message string
	TripID  domain.TripID
}

type sosRequest struct {
	Location  *location.Fix `json:"location"`
	Message   *string       `json:"message"`
	TripID    *string       `json:"tripId"`
	Timestamp string        `json:"timestamp"`
}

type Service struct {
	gw      Sender
	locator Locator
	notify  notifier.Notifier
	clock   clock.Clock
	log     *slog.Logger
}

func NewService(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Service{gw: deps.Gateway, locator: deps.Locator, notify: deps.Notifier, clock: deps.Clock, log: log}
}

// TriggerSOS raises an emergency alert. Location is attached when the device
// produces a fix within the tracker's timeout; the alert is sent regardless.
func (s *Service) TriggerSOS(ctx context.Context, in SOS) (bool, error) {
	var pos *domain.Position
	if s.locator != nil {
		pos = s.locator.BestEffort(ctx)
	}
	body := sosRequest{
		Location:  location.FixFrom(pos),
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
	}
	if msg := strings.TrimSpace(in.Message); msg != "" {
		body.Message = &msg
	}
	if in.TripID != "" {
		id := string(in.TripID)
		body.TripID = &id
	}

	resp, err := s.gw.Send(ctx, gateway.Request{Method: http.MethodPost, Path: "/alerts/sos", Body: body})
	if err == nil && !resp.OK() {
		err = gateway.ErrorFromResponse(resp)
	}
	if err != nil {
		s.log.WarnContext(ctx, "sos not delivered", slog.String("error", err.Error()))
		if msg, ok := gateway.UserMessage(err, "SOS alert failed"); ok {
			s.report(ctx, notifier.LevelError, msg)
		}
		return false, err
	}

	s.log.InfoContext(ctx, "sos delivered", slog.Bool("with_location", pos != nil))
	s.report(ctx, notifier.LevelSuccess, "SOS alert sent to your emergency contacts.")
	return true, nil
}

func (s *Service) report(ctx context.Context, level notifier.Level, msg string) {
	if s.notify != nil {
		s.notify.Notify(ctx, level, msg)
	}
}

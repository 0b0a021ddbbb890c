// Package client composes the session, auth flow, gateway and feature calls
// into one value per application instance.
package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/alerts"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/auth"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/profile"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/trips"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/config"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	portlocation "github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/scheduler"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Deps are the external collaborators of a Client.
type Deps struct {
	Storage   storage.Storage
	Location  portlocation.Provider
	Notifier  notifier.Notifier
	Navigator navigator.Navigator
	Scheduler scheduler.Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger

	// HTTPClient overrides the client built from Options.HTTPTimeout.
	HTTPClient *http.Client
	// Registerer receives gateway metrics; nil disables them.
	Registerer prometheus.Registerer
}

type Options struct {
	APIBaseURL string
	WebBaseURL string
	// Auth is the credential transport. Exactly one per deployment.
	Auth gateway.Authenticator

	HTTPTimeout               time.Duration
	LocationTimeout           time.Duration
	ExpiredRedirectDelay      time.Duration
	OAuthFailureRedirectDelay time.Duration
}

// OptionsFromConfig maps deployment configuration onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	var a gateway.Authenticator = gateway.BearerAuth{}
	if cfg.AuthTransport == config.AuthTransportCookie {
		a = gateway.CookieAuth{CookieName: cfg.CookieName}
	}
	return Options{
		APIBaseURL:                cfg.APIBaseURL,
		WebBaseURL:                cfg.WebBaseURL,
		Auth:                      a,
		HTTPTimeout:               cfg.HTTPTimeout,
		LocationTimeout:           cfg.LocationTimeout,
		ExpiredRedirectDelay:      cfg.ExpiredRedirectDelay,
		OAuthFailureRedirectDelay: cfg.OAuthFailureRedirectDelay,
	}
}

// Client is the single context object of one application instance. It holds
// no package-level state; two Clients over separate storage are independent.
type Client struct {
	Sessions *session.Store
	Gateway  *gateway.Gateway
	Auth     *auth.Flow
	Location *location.Tracker
	Trips    *trips.Service
	Alerts   *alerts.Service
	Profile  *profile.Service

	log *slog.Logger
}

func New(deps Deps, opts Options) *Client {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var metrics *gateway.Metrics
	if deps.Registerer != nil {
		metrics = gateway.NewMetrics(deps.Registerer)
	}

	sessions := session.NewStore(deps.Storage, deps.Clock, log.With(slog.String("component", "session")))
	gw := gateway.New(sessions, gateway.Options{
		BaseURL:    opts.APIBaseURL,
		HTTPClient: httpClient,
		Auth:       opts.Auth,
		Notifier:   deps.Notifier,
		Logger:     log.With(slog.String("component", "gateway")),
		Metrics:    metrics,
	})
	flow := auth.NewFlow(auth.Deps{
		Sessions:  sessions,
		Remote:    auth.NewRemote(gw),
		Notifier:  deps.Notifier,
		Navigator: deps.Navigator,
		Scheduler: deps.Scheduler,
		Clock:     deps.Clock,
		Logger:    log.With(slog.String("component", "auth")),
	}, auth.Options{
		ExpiredRedirectDelay:      opts.ExpiredRedirectDelay,
		OAuthFailureRedirectDelay: opts.OAuthFailureRedirectDelay,
	})
	gw.SetAuthHandler(flow)

	tracker := location.NewTracker(deps.Location, opts.LocationTimeout, log.With(slog.String("component", "location")))
	tripSvc := trips.NewService(trips.Deps{
		Gateway:  gw,
		Storage:  deps.Storage,
		Locator:  tracker,
		Notifier: deps.Notifier,
		Clock:    deps.Clock,
		Logger:   log.With(slog.String("component", "trips")),
	}, trips.Options{WebBaseURL: opts.WebBaseURL})

	return &Client{
		Sessions: sessions,
		Gateway:  gw,
		Auth:     flow,
		Location: tracker,
		Trips:    tripSvc,
		Alerts: alerts.NewService(alerts.Deps{
			Gateway:  gw,
			Locator:  tracker,
			Notifier: deps.Notifier,
			Clock:    deps.Clock,
			Logger:   log.With(slog.String("component", "alerts")),
		}),
		Profile: profile.NewService(profile.Deps{
			Gateway:  gw,
			Sessions: sessions,
			Trips:    tripSvc,
			Notifier: deps.Notifier,
			Clock:    deps.Clock,
			Logger:   log.With(slog.String("component", "profile")),
		}),
		log: log,
	}
}

// Start runs the page-load sequence: restore the session, absorb an OAuth
// callback carried by pageURL, then gate the view when it is protected.
// ok is false when a protected view must not be shown.
func (c *Client) Start(ctx context.Context, pageURL string, protected bool) (state auth.State, ok bool) {
	c.Auth.Restore(ctx)
	if pageURL != "" {
		if _, err := c.Auth.AbsorbCallback(ctx, pageURL); err != nil {
			c.log.InfoContext(ctx, "oauth callback not absorbed", slog.String("error", err.Error()))
		}
	}
	state = c.Auth.State()
	if !protected {
		return state, true
	}
	return state, c.Auth.Guard(ctx)
}

// Close stops background work owned by the client.
func (c *Client) Close() {
	c.Location.StopWatch()
}

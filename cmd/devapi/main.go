// Command devapi runs an in-memory trip safety API for local development of
// the client. It is not a production server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/devapi"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
)

type devConfig struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	Secret       string        `env:"DEVAPI_SECRET"`
	TokenTTL     time.Duration `env:"DEVAPI_TOKEN_TTL" envDefault:"24h"`
	CookieName   string        `env:"DEVAPI_COOKIE_NAME" envDefault:"session"`
	WrapTripList bool          `env:"DEVAPI_WRAP_TRIP_LIST" envDefault:"false"`

	SeedName     string `env:"DEVAPI_SEED_NAME" envDefault:"Dev User"`
	SeedEmail    string `env:"DEVAPI_SEED_EMAIL" envDefault:"dev@example.org"`
	SeedPassword string `env:"DEVAPI_SEED_PASSWORD" envDefault:"password123"`
}

func main() {
	var cfg devConfig
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("tripsafe-devapi", cfg.LogLevel)

	srv := devapi.NewServer(devapi.Options{
		Secret:       []byte(cfg.Secret),
		TokenTTL:     cfg.TokenTTL,
		CookieName:   cfg.CookieName,
		WrapTripList: cfg.WrapTripList,
		Logger:       log,
	})
	if cfg.SeedEmail != "" {
		id, err := srv.AddUser(devapi.User{Name: cfg.SeedName, Email: cfg.SeedEmail}, cfg.SeedPassword)
		if err != nil {
			log.Error("seed user", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("seeded user", slog.String("id", id), slog.String("email", cfg.SeedEmail))
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           devapi.NewRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("devapi listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

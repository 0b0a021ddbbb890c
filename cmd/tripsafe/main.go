// Command tripsafe is a terminal front end for the trip safety service.
//
// Usage: tripsafe <command> [flags]. Configuration comes from TRIPSAFE_*
// environment variables; see internal/platform/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/console"
	filestorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/file/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/geo"
	memstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/postgres"
	pgstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/postgres/storage"
	redisstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/redis/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/client"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	platformclock "github.com/Overland-East-Bay/trip-safety-client/internal/platform/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/config"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/scheduler"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// app is what every command runs against.
type app struct {
	cfg   *config.Config
	c     *client.Client
	log   *slog.Logger
	sched *scheduler.Timer
	nav   *console.Navigator
}

type command struct {
	summary   string
	protected bool
	run       func(ctx context.Context, a *app, args []string) error
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter("tripsafe", cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("open storage", slog.String("backend", cfg.StorageBackend), slog.String("error", err.Error()))
		os.Exit(1)
	}

	a := newApp(cfg, store, log)
	code := a.exec(ctx, cmd, args)
	a.c.Close()
	// Let scheduled redirects print before the process ends.
	a.sched.Wait()
	cleanup()
	os.Exit(code)
}

func newApp(cfg *config.Config, store storage.Storage, log *slog.Logger) *app {
	clk := platformclock.NewSystemClock()
	sched := scheduler.NewTimer()
	nav := console.NewNavigator(os.Stdout, map[navigator.View]string{
		navigator.ViewLogin: cfg.WebBaseURL + "/login.html",
		navigator.ViewIndex: cfg.WebBaseURL + "/index.html",
	})

	var loc location.Provider = geo.Unavailable{}
	if cfg.StaticLat != nil && cfg.StaticLon != nil {
		loc = geo.NewStatic(*cfg.StaticLat, *cfg.StaticLon, nil, clk, 0)
	}

	c := client.New(client.Deps{
		Storage:    store,
		Location:   loc,
		Notifier:   console.NewNotifier(os.Stdout),
		Navigator:  nav,
		Scheduler:  sched,
		Clock:      clk,
		Logger:     log,
		Registerer: prometheus.NewRegistry(),
	}, client.OptionsFromConfig(cfg))

	return &app{cfg: cfg, c: c, log: log, sched: sched, nav: nav}
}

func (a *app) exec(ctx context.Context, cmd command, args []string) int {
	if _, ok := a.c.Start(ctx, "", cmd.protected); !ok {
		return 1
	}
	err := cmd.run(ctx, a, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case gateway.IsReported(err):
		// Already shown to the user by the notifier.
		return 1
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
}

// openStorage returns the configured storage backend and a func releasing it.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		return memstorage.NewStore(), noop, nil
	case config.StorageBackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: 2})
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.Migrate(connectCtx, pool); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return pgstorage.NewStore(pool, cfg.StorageNamespace), pool.Close, nil
	case config.StorageBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return redisstorage.NewStore(rdb, cfg.StorageNamespace, 0), func() { _ = rdb.Close() }, nil
	default:
		return filestorage.NewStore(cfg.StoragePath), noop, nil
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tripsafe <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-15s %s\n", n, commands[n].summary)
	}
}

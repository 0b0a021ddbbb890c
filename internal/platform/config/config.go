package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	AuthTransportBearer = "bearer"
	AuthTransportCookie = "cookie"

	StorageBackendFile     = "file"
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"
)

// Config is the deployment configuration of the trip safety client.
//
// Auth transport and redirect delays are per-deployment policy: one process
// uses exactly one of each.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	APIBaseURL string `env:"TRIPSAFE_API_BASE_URL" envDefault:"http://localhost:8080"`
	WebBaseURL string `env:"TRIPSAFE_WEB_BASE_URL" envDefault:"http://localhost:3000"`

	AuthTransport string `env:"TRIPSAFE_AUTH_TRANSPORT" envDefault:"bearer"`
	CookieName    string `env:"TRIPSAFE_COOKIE_NAME" envDefault:"session"`

	StorageBackend   string `env:"TRIPSAFE_STORAGE_BACKEND" envDefault:"file"`
	StoragePath      string `env:"TRIPSAFE_STORAGE_PATH" envDefault:".tripsafe/state.json"`
	StorageNamespace string `env:"TRIPSAFE_STORAGE_NAMESPACE" envDefault:"default"`
	DatabaseURL      string `env:"DATABASE_URL"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`

	HTTPTimeout     time.Duration `env:"TRIPSAFE_HTTP_TIMEOUT" envDefault:"15s"`
	LocationTimeout time.Duration `env:"TRIPSAFE_LOCATION_TIMEOUT" envDefault:"10s"`

	ExpiredRedirectDelay      time.Duration `env:"TRIPSAFE_EXPIRED_REDIRECT_DELAY" envDefault:"1500ms"`
	OAuthFailureRedirectDelay time.Duration `env:"TRIPSAFE_OAUTH_FAILURE_REDIRECT_DELAY" envDefault:"1s"`

	// StaticLat/StaticLon configure a fixed position for devices without positioning hardware.
	StaticLat *float64 `env:"TRIPSAFE_STATIC_LAT"`
	StaticLon *float64 `env:"TRIPSAFE_STATIC_LON"`

	CallbackAddr string `env:"TRIPSAFE_CALLBACK_ADDR" envDefault:"127.0.0.1:8765"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	for name, raw := range map[string]string{
		"TRIPSAFE_API_BASE_URL": c.APIBaseURL,
		"TRIPSAFE_WEB_BASE_URL": c.WebBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	switch c.AuthTransport {
	case AuthTransportBearer:
	case AuthTransportCookie:
		if c.CookieName == "" {
			return fmt.Errorf("TRIPSAFE_COOKIE_NAME must be set for cookie auth")
		}
	default:
		return fmt.Errorf("TRIPSAFE_AUTH_TRANSPORT must be bearer or cookie, got %q", c.AuthTransport)
	}

	switch c.StorageBackend {
	case StorageBackendFile:
		if c.StoragePath == "" {
			return fmt.Errorf("TRIPSAFE_STORAGE_PATH must be set for file storage")
		}
	case StorageBackendMemory, StorageBackendRedis:
	case StorageBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("TRIPSAFE_STORAGE_BACKEND must be one of file|memory|postgres|redis, got %q", c.StorageBackend)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("TRIPSAFE_HTTP_TIMEOUT must be positive")
	}
	if c.LocationTimeout <= 0 {
		return fmt.Errorf("TRIPSAFE_LOCATION_TIMEOUT must be positive")
	}
	if c.ExpiredRedirectDelay < 0 || c.ExpiredRedirectDelay > 5*time.Second {
		return fmt.Errorf("TRIPSAFE_EXPIRED_REDIRECT_DELAY must be between 0 and 5s, got %s", c.ExpiredRedirectDelay)
	}
	// Long enough to read the failure, short enough not to strand the user.
	if c.OAuthFailureRedirectDelay < time.Second || c.OAuthFailureRedirectDelay > 20*time.Second {
		return fmt.Errorf("TRIPSAFE_OAUTH_FAILURE_REDIRECT_DELAY must be between 1s and 20s, got %s", c.OAuthFailureRedirectDelay)
	}
	if (c.StaticLat == nil) != (c.StaticLon == nil) {
		return fmt.Errorf("TRIPSAFE_STATIC_LAT and TRIPSAFE_STATIC_LON must be set together")
	}
	return nil
}

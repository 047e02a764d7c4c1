// Package config loads the session client configuration from the environment.
package config

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/session-client/internal/core/domain"
)

const appName = "session-client"

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	API     APIConfig
	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type APIConfig struct {
	URL     string        `env:"AUTH_API_URL,     default=http://localhost:8080"`
	Timeout time.Duration `env:"AUTH_API_TIMEOUT, default=10s"`
}

type SessionConfig struct {
	StartupTimeout time.Duration `env:"SESSION_STARTUP_TIMEOUT, default=5s"`
	Revalidate     bool          `env:"SESSION_REVALIDATE,      default=true"`
	TokenStore     string        `env:"SESSION_TOKEN_STORE,     default=file"`
	ProfileStore   string        `env:"SESSION_PROFILE_STORE,   default=file"`
	// Dir holds the file backends. Empty means the XDG state directory.
	Dir string `env:"SESSION_DIR"`
	// Key namespaces the redis and mongo records so several sessions can
	// share one server.
	Key string `env:"SESSION_KEY, default=default"`

	TokenExpiryDays int    `env:"SESSION_TOKEN_EXPIRY_DAYS, default=7"`
	TokenSecure     bool   `env:"SESSION_TOKEN_SECURE,      default=true"`
	TokenSameSite   string `env:"SESSION_TOKEN_SAME_SITE,   default=strict"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=session_client"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from l. Tests pass an envconfig.MapLookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Session.Dir == "" {
		cfg.Session.Dir = stateDir(l)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.TokenStore {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("config: SESSION_TOKEN_STORE %q: %w", c.Session.TokenStore, domain.ErrUnknownBackend)
	}
	switch c.Session.ProfileStore {
	case BackendFile, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("config: SESSION_PROFILE_STORE %q: %w", c.Session.ProfileStore, domain.ErrUnknownBackend)
	}
	if c.Session.TokenExpiryDays <= 0 {
		return fmt.Errorf("config: SESSION_TOKEN_EXPIRY_DAYS must be positive, got %d", c.Session.TokenExpiryDays)
	}
	if c.Session.StartupTimeout <= 0 {
		return fmt.Errorf("config: SESSION_STARTUP_TIMEOUT must be positive, got %s", c.Session.StartupTimeout)
	}
	if domain.ParseSameSite(c.Session.TokenSameSite) == http.SameSiteDefaultMode {
		return fmt.Errorf("config: SESSION_TOKEN_SAME_SITE must be strict, lax or none, got %q", c.Session.TokenSameSite)
	}
	return nil
}

// TokenOptions returns the attributes new tokens are stored with.
func (c *Config) TokenOptions() domain.TokenOptions {
	return domain.TokenOptions{
		ExpiryDays: c.Session.TokenExpiryDays,
		Secure:     c.Session.TokenSecure,
		HTTPOnly:   true,
		SameSite:   domain.ParseSameSite(c.Session.TokenSameSite),
	}
}

// IsDevelopment reports whether human-friendly log output should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// stateDir follows the XDG base directory layout: XDG_STATE_HOME, falling
// back to ~/.local/state.
func stateDir(l envconfig.Lookuper) string {
	base, _ := l.Lookup("XDG_STATE_HOME")
	if base == "" {
		home, _ := l.Lookup("HOME")
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, appName)
}

// Package app assembles the session client from configuration: stores,
// invalidation bus, transport, gateway and the session manager.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gomongo "go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/core/ports"
	"github.com/99minutos/session-client/internal/core/service"
	"github.com/99minutos/session-client/internal/infrastructure/config"
	mongostore "github.com/99minutos/session-client/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/session-client/internal/infrastructure/db/redis"
	"github.com/99minutos/session-client/internal/infrastructure/health"
	"github.com/99minutos/session-client/internal/infrastructure/httpclient"
	"github.com/99minutos/session-client/internal/infrastructure/signal"
	"github.com/99minutos/session-client/internal/infrastructure/store/file"
)

// App is a fully wired session client.
type App struct {
	Session *service.SessionManager
	// HTTP is the authenticated client consumers use for their own API calls.
	HTTP   *http.Client
	Health *health.Checker

	rdb    *goredis.Client
	mdb    *gomongo.Client
	cancel context.CancelFunc
	log    zerolog.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	onForcedLogout func(domain.Invalidation)
	baseTransport  http.RoundTripper
}

// WithForcedLogoutHook is called after the server rejected the session.
func WithForcedLogoutHook(fn func(domain.Invalidation)) Option {
	return func(o *options) { o.onForcedLogout = fn }
}

// WithBaseTransport sets the RoundTripper under the session transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.baseTransport = rt }
}

// New connects the configured backends and wires the session. The returned
// App must be closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{log: log}
	if err := a.connect(ctx, cfg); err != nil {
		a.closeConnections(context.Background())
		return nil, err
	}

	tokens, err := a.tokenStore(cfg)
	if err != nil {
		a.closeConnections(context.Background())
		return nil, err
	}
	profiles, err := a.profileStore(cfg)
	if err != nil {
		a.closeConnections(context.Background())
		return nil, err
	}

	busCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	bus := signal.NewBus(0, log.With().Str("component", "signal").Logger())
	bus.Start(busCtx)

	transport := httpclient.NewTransport(o.baseTransport, tokens, bus, log.With().Str("component", "transport").Logger())
	a.HTTP = httpclient.NewHTTPClient(transport, cfg.API.Timeout)

	gateway, err := httpclient.NewClient(cfg.API.URL, a.HTTP, log.With().Str("component", "gateway").Logger())
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	a.Session = service.NewSessionManager(tokens, profiles, gateway, bus, service.Options{
		TokenOptions:   cfg.TokenOptions(),
		StartupTimeout: cfg.Session.StartupTimeout,
		Revalidate:     cfg.Session.Revalidate,
		OnForcedLogout: o.onForcedLogout,
	}, log.With().Str("component", "session").Logger())

	a.Health = a.healthChecker(cfg, o.baseTransport)
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config) error {
	s := cfg.Session
	if s.TokenStore == config.BackendRedis || s.ProfileStore == config.BackendRedis {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = rdb
	}
	if s.ProfileStore == config.BackendMongo {
		client, _, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		a.mdb = client
	}
	return nil
}

func (a *App) tokenStore(cfg *config.Config) (ports.TokenStore, error) {
	log := a.log.With().Str("component", "token_store").Logger()
	switch cfg.Session.TokenStore {
	case config.BackendFile:
		return file.NewTokenStore(cfg.Session.Dir, log)
	case config.BackendRedis:
		return redisstore.NewTokenStore(a.rdb, cfg.Session.Key, log), nil
	default:
		return nil, fmt.Errorf("token store %q: %w", cfg.Session.TokenStore, domain.ErrUnknownBackend)
	}
}

func (a *App) profileStore(cfg *config.Config) (ports.ProfileStore, error) {
	log := a.log.With().Str("component", "profile_store").Logger()
	switch cfg.Session.ProfileStore {
	case config.BackendFile:
		return file.NewProfileStore(cfg.Session.Dir, log)
	case config.BackendRedis:
		return redisstore.NewProfileStore(a.rdb, cfg.Session.Key, log), nil
	case config.BackendMongo:
		return mongostore.NewProfileStore(a.mdb.Database(cfg.Mongo.Database), cfg.Session.Key, log), nil
	default:
		return nil, fmt.Errorf("profile store %q: %w", cfg.Session.ProfileStore, domain.ErrUnknownBackend)
	}
}

// healthChecker probes the auth API without the session transport, so a
// probe can never trigger an invalidation.
func (a *App) healthChecker(cfg *config.Config, base http.RoundTripper) *health.Checker {
	c := health.NewChecker(cfg.API.Timeout)
	c.Add("auth_api", health.HTTPProbe(&http.Client{Transport: base, Timeout: cfg.API.Timeout}, cfg.API.URL))
	if a.rdb != nil {
		c.Add("redis", health.RedisProbe(a.rdb))
	}
	if a.mdb != nil {
		c.Add("mongodb", health.MongoProbe(a.mdb.Database(cfg.Mongo.Database)))
	}
	return c
}

// Close stops the invalidation worker and disconnects the store servers.
func (a *App) Close(ctx context.Context) error {
	if a.Session != nil {
		a.Session.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	return a.closeConnections(ctx)
}

func (a *App) closeConnections(ctx context.Context) error {
	var errs []error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		a.rdb = nil
	}
	if a.mdb != nil {
		if err := a.mdb.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		}
		a.mdb = nil
	}
	return errors.Join(errs...)
}

package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/mcoot/quill/internal/config"
	"github.com/mcoot/quill/internal/dependencies/clock"
	"github.com/mcoot/quill/internal/dependencies/random"
	"github.com/mcoot/quill/internal/events"
	"github.com/mcoot/quill/internal/metrics"
	"github.com/mcoot/quill/internal/middleware"
	"github.com/mcoot/quill/internal/sanitize"
	"github.com/mcoot/quill/internal/services/auth"
	"github.com/mcoot/quill/internal/services/posts"
	"github.com/mcoot/quill/internal/storage"
	"github.com/mcoot/quill/internal/storage/memory"
	redisstorage "github.com/mcoot/quill/internal/storage/redis"
	"github.com/mcoot/quill/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypeSQLite   = config.StorageSQLite
	StorageTypePostgres = config.StoragePostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService *auth.Service
	PostService *posts.Service
	HubManager  *events.HubManager
	Sanitizer   *sanitize.Sanitizer

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// SignInLimiter throttles credential endpoints per client
	SignInLimiter *middleware.RateLimiter
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If TokenSecret is empty a random secret is generated
	AuthConfig auth.Config
	// RateLimit configures sign-in throttling (optional)
	// If zero value, defaults to middleware.DefaultRateLimitConfig()
	RateLimit middleware.RateLimitConfig
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sqlite" or "postgres")
	SQLConfig *sqlstore.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	authCfg := cfg.AuthConfig
	if authCfg.TokenSecret == "" {
		// Sessions won't survive a restart without a configured secret
		authCfg.TokenSecret = rnd.Secret()
		logger.Warn("no token secret configured, generated an ephemeral one")
	}

	app := newWithDependencies(store, clk, rnd, authCfg, logger)
	app.SignInLimiter = newLimiter(cfg.RateLimit, logger)
	return app, nil
}

// FromConfig translates the loaded server configuration into a factory Config
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	out := Config{
		AuthConfig: auth.Config{
			SessionDuration:     cfg.Auth.SessionTTL,
			RequireConfirmation: cfg.Auth.RequireConfirmation,
			TokenSecret:         cfg.Auth.TokenSecret,
			TokenIssuer:         cfg.Auth.TokenIssuer,
		},
		RateLimit: middleware.RateLimitConfig{
			Rate:  rate.Limit(cfg.Auth.SignInPerMinute / 60.0),
			Burst: cfg.Auth.SignInBurst,
		},
		Logger:      logger,
		StorageType: cfg.Storage.Type,
	}
	switch cfg.Storage.Type {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		out.RedisConfig = &redisCfg
	case StorageTypeSQLite:
		out.SQLConfig = &sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: cfg.Storage.DSN}
	case StorageTypePostgres:
		out.SQLConfig = &sqlstore.Config{Driver: sqlstore.DriverPostgres, DSN: cfg.Storage.DSN}
	}
	return out
}

func openStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite, StorageTypePostgres:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		return sqlstore.Open(ctx, *cfg.SQLConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q", storageType)
	}
}

func newLimiter(cfg middleware.RateLimitConfig, logger *slog.Logger) *middleware.RateLimiter {
	if cfg.Rate == 0 && cfg.Burst == 0 {
		cfg = middleware.DefaultRateLimitConfig()
	}
	return middleware.NewRateLimiter(cfg, logger.With(slog.String("component", "ratelimit")))
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, logger *slog.Logger) *App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Create services
	hubManager := events.NewHubManager(logger)
	sanitizer := sanitize.New()
	authService := auth.New(store, clk, rnd, hubManager, collector, authCfg, logger)
	postService := posts.New(store, clk, sanitizer, collector, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		AuthService: authService,
		PostService: postService,
		HubManager:  hubManager,
		Sanitizer:   sanitizer,
		Registry:    registry,
		Metrics:     collector,
	}
}

// Close releases background resources and the storage connection
func (a *App) Close() error {
	if a.SignInLimiter != nil {
		a.SignInLimiter.Stop()
	}
	a.HubManager.Close()
	return a.Storage.Close()
}

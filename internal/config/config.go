// Package config loads the server configuration from an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the root server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
	StaticDir       string        `yaml:"static_dir"       env:"SERVER_STATIC_DIR"`
	SecureCookies   bool          `yaml:"secure_cookies"   env:"SERVER_SECURE_COOKIES"   env-default:"false"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string `yaml:"type"      env:"STORAGE_TYPE"      env-default:"memory"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	// DSN is a postgres URL or a sqlite file path
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// AuthConfig holds identity provider settings
type AuthConfig struct {
	TokenSecret         string        `yaml:"token_secret"         env:"AUTH_TOKEN_SECRET"         env-required:"true"`
	TokenIssuer         string        `yaml:"token_issuer"         env:"AUTH_TOKEN_ISSUER"         env-default:"quill"`
	SessionTTL          time.Duration `yaml:"session_ttl"          env:"AUTH_SESSION_TTL"          env-default:"168h"`
	RequireConfirmation bool          `yaml:"require_confirmation" env:"AUTH_REQUIRE_CONFIRMATION" env-default:"false"`
	JanitorInterval     time.Duration `yaml:"janitor_interval"     env:"AUTH_JANITOR_INTERVAL"     env-default:"1m"`
	// SignInPerMinute and SignInBurst throttle sign-in and sign-up per client address
	SignInPerMinute float64 `yaml:"sign_in_per_minute" env:"AUTH_SIGNIN_PER_MINUTE" env-default:"10"`
	SignInBurst     int     `yaml:"sign_in_burst"      env:"AUTH_SIGNIN_BURST"      env-default:"5"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// File enables a rotated log file in addition to stdout
	File       string `yaml:"file"         env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"  env:"LOG_MAX_SIZE_MB"  env-default:"100"`
	MaxBackups int    `yaml:"max_backups"  env:"LOG_MAX_BACKUPS"  env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. The file is read only when CONFIG_PATH is set.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field rules that tags can't express
func (c *Config) Validate() error {
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("auth.token_secret must be at least 32 characters (got %d)", len(c.Auth.TokenSecret))
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be > 0 (got %s)", c.Auth.SessionTTL)
	}
	if c.Auth.SignInPerMinute <= 0 || c.Auth.SignInBurst <= 0 {
		return fmt.Errorf("auth sign-in rate limit must be positive")
	}

	types := []string{StorageMemory, StorageRedis, StorageSQLite, StoragePostgres}
	if !slices.Contains(types, c.Storage.Type) {
		return fmt.Errorf("storage.type must be one of %v (got %q)", types, c.Storage.Type)
	}
	switch c.Storage.Type {
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for redis storage")
		}
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for %s storage", c.Storage.Type)
		}
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", levels, c.Log.Level)
	}
	return nil
}

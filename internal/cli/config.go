package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Environment variables provide defaults
// that command-line flags override.
type Config struct {
	ServerURL string        `env:"QUILL_SERVER" envDefault:"http://localhost:8080"`
	TokenFile string        `env:"QUILL_TOKEN_FILE"`
	Password  string        `env:"QUILL_PASSWORD"`
	Output    string        `env:"QUILL_OUTPUT" envDefault:"text"`
	Timeout   time.Duration `env:"QUILL_TIMEOUT" envDefault:"10s"`
	Verbose   bool          `env:"QUILL_VERBOSE"`
}

// LoadConfig reads the configuration from the environment
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	return cfg, nil
}

// Validate checks values that flags may have changed
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("output must be text or json, got %q", c.Output)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".quill", "token.json")
	}
	return filepath.Join(home, ".quill", "token.json")
}

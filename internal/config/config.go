// Package config loads the simplexd configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the full simplexd configuration, populated from environment
// variables with sensible defaults for local development.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Store struct {
		Backend string `env:"STORE_BACKEND" envDefault:"memory"`
		DSN     string `env:"STORE_DSN"`
	}
	Optimization struct {
		MaxEvaluations int     `env:"OPT_MAX_EVALUATIONS" envDefault:"10000"`
		RelTolerance   float64 `env:"OPT_REL_TOLERANCE" envDefault:"1e-10"`
		AbsTolerance   float64 `env:"OPT_ABS_TOLERANCE" envDefault:"1e-30"`
		InitialStep    float64 `env:"OPT_INITIAL_STEP" envDefault:"0.1"`
	}
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case "memory":
	case "sqlite":
		if cfg.Store.DSN == "" {
			if err := os.MkdirAll("data", 0o755); err != nil {
				return nil, err
			}
			cfg.Store.DSN = filepath.Join("data", "simplexd.db")
		}
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

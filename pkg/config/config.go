// Package config loads bootsift settings from the environment, after an
// optional .env file. Command-line flags override these values.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the run settings.
type Config struct {
	Input        string `env:"BOOTSIFT_INPUT"          envDefault:"boot.log"`
	OutDir       string `env:"BOOTSIFT_OUT_DIR"        envDefault:"."`
	Manifest     string `env:"BOOTSIFT_MANIFEST"`
	Mode         string `env:"BOOTSIFT_MODE"           envDefault:"parallel"`
	Workers      int    `env:"BOOTSIFT_WORKERS"        envDefault:"0"`
	MaxLineBytes int    `env:"BOOTSIFT_MAX_LINE_BYTES" envDefault:"8192"`
	LogLevel     string `env:"BOOTSIFT_LOG_LEVEL"      envDefault:"info"`
	LogFormat    string `env:"BOOTSIFT_LOG_FORMAT"     envDefault:"text"`
	MetricsFile  string `env:"BOOTSIFT_METRICS_FILE"`
	Strict       bool   `env:"BOOTSIFT_STRICT"         envDefault:"false"`
}

// Load reads the given .env files (".env" when none are named) and parses
// the environment. Missing .env files are ignored.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Mode != "parallel" && c.Mode != "sequential" {
		errs = append(errs, fmt.Errorf("%w: mode must be parallel or sequential, got %q", ErrInvalidConfig, c.Mode))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers))
	}
	if c.MaxLineBytes < 16 {
		errs = append(errs, fmt.Errorf("%w: max line bytes must be at least 16, got %d", ErrInvalidConfig, c.MaxLineBytes))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.LogFormat))
	}
	return errors.Join(errs...)
}

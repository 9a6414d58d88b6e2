// Package config provides unified configuration loading for gocosmo.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/astrika/gocosmo/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all gocosmo configuration settings.
type Config struct {
	// Solver contains numerical tolerances for the integrators.
	Solver SolverConfig `json:"solver" yaml:"solver"`

	// Models maps a model name to parameter overrides applied after
	// construction, e.g. models: {xcdm: {H0: 70.0, w: -1.1}}.
	Models map[string]map[string]float64 `json:"models,omitempty" yaml:"models,omitempty"`

	// Cache contains settings for the distance table cache.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Logging contains settings for operational and solver logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SolverConfig configures the numerical solvers.
type SolverConfig struct {
	// RelTol is the relative tolerance for ODE integration and quadrature.
	RelTol float64 `json:"reltol" yaml:"reltol"`

	// AbsTol is the absolute tolerance floor.
	AbsTol float64 `json:"abstol" yaml:"abstol"`

	// WKBPrec is the default WKB validity precision target.
	WKBPrec float64 `json:"wkb_prec" yaml:"wkb_prec"`

	// Stiff selects the implicit BDF2 integrator for perturbation evolution.
	// On by default: the envelope system is stiff whenever the mode frequency
	// outruns the background timescale.
	Stiff bool `json:"stiff" yaml:"stiff"`
}

// CacheConfig configures the distance table cache.
type CacheConfig struct {
	// Enabled turns the SQLite result cache on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the cache directory. Defaults to ~/.gocosmo.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoggingConfig configures gocosmo's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables solver step logging to ~/.gocosmo/steps.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			RelTol:  constants.DefaultRelTol,
			AbsTol:  constants.DefaultAbsTol,
			WKBPrec: constants.DefaultWKBPrec,
			Stiff:   true,
		},
		Cache: CacheConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns the gocosmo configuration/cache directory (~/.gocosmo).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".gocosmo"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.gocosmo/config.yaml -> environment variables
func Load() (*Config, error) {
	cfg := Default()

	dir, err := Dir()
	if err == nil {
		path := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			fileCfg, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			cfg = fileCfg
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Solver.RelTol <= 0 || c.Solver.RelTol >= 1 {
		return fmt.Errorf("solver reltol must be in (0, 1), got %g", c.Solver.RelTol)
	}
	if c.Solver.AbsTol < 0 {
		return fmt.Errorf("solver abstol must be non-negative, got %g", c.Solver.AbsTol)
	}
	if c.Solver.WKBPrec <= 0 || c.Solver.WKBPrec > 1 {
		return fmt.Errorf("solver wkb_prec must be in (0, 1], got %g", c.Solver.WKBPrec)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOCOSMO_RELTOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Solver.RelTol = f
		}
	}

	if v := os.Getenv("GOCOSMO_ABSTOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Solver.AbsTol = f
		}
	}

	if v := os.Getenv("GOCOSMO_WKB_PREC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Solver.WKBPrec = f
		}
	}

	if v := os.Getenv("GOCOSMO_STIFF"); v != "" {
		cfg.Solver.Stiff = v == "true" || v == "1"
	}

	if v := os.Getenv("GOCOSMO_CACHE"); v != "" {
		cfg.Cache.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("GOCOSMO_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}

	if v := os.Getenv("GOCOSMO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Solver.RelTol != 1e-8 {
		t.Errorf("default reltol = %g, want 1e-8", cfg.Solver.RelTol)
	}
	if cfg.Solver.WKBPrec != 1e-7 {
		t.Errorf("default wkb_prec = %g, want 1e-7", cfg.Solver.WKBPrec)
	}
	if !cfg.Solver.Stiff {
		t.Error("stiff integration should default to on")
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
solver:
  reltol: 1e-10
  wkb_prec: 1e-5
  stiff: false
models:
  xcdm:
    H0: 70.0
    w: -1.1
cache:
  enabled: true
  dir: /tmp/gocosmo-test
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Solver.RelTol != 1e-10 {
		t.Errorf("reltol = %g, want 1e-10", cfg.Solver.RelTol)
	}
	if cfg.Solver.WKBPrec != 1e-5 {
		t.Errorf("wkb_prec = %g, want 1e-5", cfg.Solver.WKBPrec)
	}
	// An explicit false in the file overrides the true default.
	if cfg.Solver.Stiff {
		t.Error("stiff: false in the file not honored")
	}
	// Unset fields keep their defaults.
	if cfg.Solver.AbsTol != Default().Solver.AbsTol {
		t.Errorf("abstol = %g, want default", cfg.Solver.AbsTol)
	}
	if cfg.Models["xcdm"]["H0"] != 70.0 || cfg.Models["xcdm"]["w"] != -1.1 {
		t.Errorf("model overrides = %v", cfg.Models)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir != "/tmp/gocosmo-test" {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("solver: ["), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOCOSMO_RELTOL", "1e-12")
	t.Setenv("GOCOSMO_WKB_PREC", "1e-4")
	t.Setenv("GOCOSMO_STIFF", "false")
	t.Setenv("GOCOSMO_CACHE", "1")
	t.Setenv("GOCOSMO_CACHE_DIR", "/tmp/gocosmo-env")
	t.Setenv("GOCOSMO_LOG_LEVEL", "trace")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.Solver.RelTol != 1e-12 {
		t.Errorf("reltol = %g, want 1e-12", cfg.Solver.RelTol)
	}
	if cfg.Solver.WKBPrec != 1e-4 {
		t.Errorf("wkb_prec = %g, want 1e-4", cfg.Solver.WKBPrec)
	}
	if cfg.Solver.Stiff {
		t.Error("GOCOSMO_STIFF=false override not applied")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir != "/tmp/gocosmo-env" {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("log level = %q, want trace", cfg.Logging.Level)
	}
}

func TestEnvOverrides_InvalidIgnored(t *testing.T) {
	t.Setenv("GOCOSMO_RELTOL", "not-a-number")
	cfg := Default()
	applyEnvOverrides(cfg)
	if cfg.Solver.RelTol != Default().Solver.RelTol {
		t.Errorf("invalid env value changed reltol to %g", cfg.Solver.RelTol)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero reltol", func(c *Config) { c.Solver.RelTol = 0 }, true},
		{"reltol too large", func(c *Config) { c.Solver.RelTol = 1 }, true},
		{"negative abstol", func(c *Config) { c.Solver.AbsTol = -1 }, true},
		{"zero wkb_prec", func(c *Config) { c.Solver.WKBPrec = 0 }, true},
		{"wkb_prec above one", func(c *Config) { c.Solver.WKBPrec = 2 }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"empty level", func(c *Config) { c.Logging.Level = "" }, false},
		{"trace level", func(c *Config) { c.Logging.Level = "trace" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

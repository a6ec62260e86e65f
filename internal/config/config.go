// Package config loads harness settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/ethics-harness/internal/gate"
)

// DefaultPath is read by Load when no explicit path is given and it exists.
const DefaultPath = "harness.yaml"

// HarnessConfig contains every harness setting.
type HarnessConfig struct {
	// DB is the SQLite file holding runs and snapshot versions.
	DB string `json:"db" yaml:"db" env:"HARNESS_DB"`

	// Run holds the defaults for a new run; CLI flags override them.
	Run RunConfig `json:"run" yaml:"run"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig describes the scenario a new run starts from.
type RunConfig struct {
	// Domain names one of the embedded domains.
	Domain string `json:"domain" yaml:"domain" env:"HARNESS_DOMAIN"`

	// DomainFile, when set, loads a domain table from disk instead.
	DomainFile string `json:"domain_file,omitempty" yaml:"domain_file,omitempty" env:"HARNESS_DOMAIN_FILE"`

	Seed uint64 `json:"seed" yaml:"seed" env:"HARNESS_SEED"`

	// Steps overrides the domain's total steps; 0 keeps the domain default.
	Steps int `json:"steps" yaml:"steps" env:"HARNESS_STEPS"`

	// Variant is unconstrained, advisory or enforced.
	Variant string `json:"variant" yaml:"variant" env:"HARNESS_VARIANT"`
}

// LoggingConfig sets the stderr log level: info, debug or trace.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" env:"HARNESS_LOG_LEVEL"`
}

// Default returns a HarnessConfig with sensible defaults.
func Default() *HarnessConfig {
	return &HarnessConfig{
		DB: "harness.db",
		Run: RunConfig{
			Domain:  "strike",
			Seed:    42,
			Variant: string(gate.Unconstrained),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load layers defaults, the YAML file and environment overrides.
// An empty path reads DefaultPath if present; an explicit path must exist.
func Load(path string) (*HarnessConfig, error) {
	cfg := Default()
	switch {
	case path != "":
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	default:
		fileCfg, err := LoadFromFile(DefaultPath)
		if err == nil {
			cfg = fileCfg
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*HarnessConfig, error) {
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

// Validate checks that the configuration is usable.
func (c *HarnessConfig) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.Run.Domain == "" && c.Run.DomainFile == "" {
		return fmt.Errorf("run.domain or run.domain_file is required")
	}
	if c.Run.Steps < 0 {
		return fmt.Errorf("run.steps must be non-negative, got %d", c.Run.Steps)
	}
	if _, err := gate.ParseVariant(c.Run.Variant); err != nil {
		return fmt.Errorf("run.variant: %w", err)
	}
	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, warn, error)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies the HARNESS_* variables named in the env tags.
// Unset variables keep the file value; malformed numbers are errors.
func applyEnvOverrides(c *HarnessConfig) error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

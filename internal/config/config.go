package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds admission and runtime configuration for the opgate server.
type Config struct {
	Addr      string // Listen address (default ":8080")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json

	// BaseSlots queue positions are admitted immediately regardless of
	// kind. ExtraSlots extends that window for non-large kinds only.
	BaseSlots  int
	ExtraSlots int

	// LargeKinds lists operation kinds held to the stricter slot policy
	// and the longer cooperative-yield cadence.
	LargeKinds []string

	// PollInterval is the cadence of the admission and connectivity polls.
	PollInterval time.Duration

	// YieldEvery / LargeYieldEvery are the cooperative-loop iteration
	// counts between yields for normal and large kinds.
	YieldEvery      int
	LargeYieldEvery int

	// Privileged lists submitter IDs whose operations bypass the queue.
	Privileged []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		BaseSlots:       2,
		ExtraSlots:      1,
		PollInterval:    1 * time.Second,
		YieldEvery:      10,
		LargeYieldEvery: 50,
	}
}

// IsLarge reports whether kind is configured as a large operation kind.
func (c Config) IsLarge(kind string) bool {
	for _, k := range c.LargeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// fileConfig is the YAML shape of a config file. Durations are strings
// ("1s", "250ms") so files stay readable.
type fileConfig struct {
	Addr            string   `yaml:"addr"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"`
	BaseSlots       *int     `yaml:"base_slots"`
	ExtraSlots      *int     `yaml:"extra_slots"`
	LargeKinds      []string `yaml:"large_kinds"`
	PollInterval    string   `yaml:"poll_interval"`
	YieldEvery      *int     `yaml:"yield_every"`
	LargeYieldEvery *int     `yaml:"large_yield_every"`
	Privileged      []string `yaml:"privileged"`
}

// Load reads a YAML config file and applies it over DefaultConfig.
// Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.BaseSlots != nil {
		cfg.BaseSlots = *fc.BaseSlots
	}
	if fc.ExtraSlots != nil {
		cfg.ExtraSlots = *fc.ExtraSlots
	}
	if fc.LargeKinds != nil {
		cfg.LargeKinds = fc.LargeKinds
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return cfg, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if fc.YieldEvery != nil {
		cfg.YieldEvery = *fc.YieldEvery
	}
	if fc.LargeYieldEvery != nil {
		cfg.LargeYieldEvery = *fc.LargeYieldEvery
	}
	if fc.Privileged != nil {
		cfg.Privileged = fc.Privileged
	}

	return cfg, nil
}

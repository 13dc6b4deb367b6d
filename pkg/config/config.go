// Package config loads the headless host configuration: generator endpoint,
// controller tunables and logging. Defaults are merged under the config
// file, and environment variables override both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runbooklabs/inlinegen/pkg/logger"
)

// Config is the application configuration.
type Config struct {
	Generator  GeneratorConfig  `json:"generator"`
	Controller ControllerConfig `json:"controller"`
	Log        logger.Config    `json:"log"`
}

// GeneratorConfig locates and attributes the generation service.
type GeneratorConfig struct {
	Endpoint     string `json:"endpoint,omitempty"` // websocket URL of the generator
	Model        string `json:"model,omitempty"`
	Username     string `json:"username,omitempty"`
	ChargeTarget string `json:"chargeTarget,omitempty"`
}

// ControllerConfig carries the controller tunables. MaxGeneratedBlocks and
// CancelledDisplayMillis were fixed constants in earlier versions; they are
// configuration now, with the original values as defaults.
type ControllerConfig struct {
	MaxGeneratedBlocks     int      `json:"maxGeneratedBlocks,omitempty"`
	CancelledDisplayMillis int      `json:"cancelledDisplayMillis,omitempty"`
	ExecutableBlockTypes   []string `json:"executableBlockTypes,omitempty"`
	AutoApprovedTools      []string `json:"autoApprovedTools,omitempty"`
}

// CancelledDisplay returns the cancelled-state display window as a duration.
func (c ControllerConfig) CancelledDisplay() time.Duration {
	return time.Duration(c.CancelledDisplayMillis) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Username: os.Getenv("USER"),
		},
		Controller: ControllerConfig{
			MaxGeneratedBlocks:     3,
			CancelledDisplayMillis: 1500,
			ExecutableBlockTypes: []string{
				"postgres", "mysql", "sqlite", "clickhouse", "http", "script",
			},
			AutoApprovedTools: []string{
				"read_document", "list_block_types",
			},
		},
		Log: logger.Config{
			Level:   "info",
			Console: true,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".inlinegen", "config.json"), nil
}

// Load reads configuration from path, merged over defaults. A missing file
// is not an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if v := os.Getenv("INLINEGEN_ENDPOINT"); v != "" {
		cfg.Generator.Endpoint = v
	}
	if v := os.Getenv("INLINEGEN_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("INLINEGEN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if cfg.Controller.MaxGeneratedBlocks <= 0 {
		cfg.Controller.MaxGeneratedBlocks = 3
	}
	if cfg.Controller.CancelledDisplayMillis <= 0 {
		cfg.Controller.CancelledDisplayMillis = 1500
	}
	return cfg, nil
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/probelabs/visor/internal/assert"
)

// Config is the analyzer.yaml structure. Every field has a working default
// so the server runs with no config file at all.
type Config struct {
	Version  string `yaml:"version"`
	Analysis struct {
		Level string `yaml:"level"`
	} `yaml:"analysis"`
	Ledger struct {
		Enabled    bool   `yaml:"enabled"`
		Path       string `yaml:"path"`
		KeyPath    string `yaml:"key_path"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"ledger"`
	Listen struct {
		// WSAddr enables the WebSocket transport when non-empty, e.g. ":8081".
		WSAddr string `yaml:"ws_addr"`
	} `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.Analysis.Level = "basic"
	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = "analyzer.db"
	cfg.Ledger.KeyPath = ".analyzer_key"
	cfg.Ledger.BufferSize = 1024
	return cfg
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. The ANALYSIS_LEVEL environment variable, when set,
// overrides the configured analysis level; the resolved value is passed
// explicitly into the handler registry rather than read ambiently.
func Load(path string) (*Config, error) {
	if err := assert.Check(path != "", "config path must not be empty"); err != nil {
		return nil, err
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if level := os.Getenv("ANALYSIS_LEVEL"); level != "" {
		cfg.Analysis.Level = level
	}
	if cfg.Analysis.Level == "" {
		cfg.Analysis.Level = "basic"
	}
	if cfg.Ledger.BufferSize <= 0 {
		cfg.Ledger.BufferSize = 1024
	}
	return cfg, nil
}

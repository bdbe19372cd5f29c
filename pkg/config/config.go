// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sandbox backends.
const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

// Config is the top-level configuration structure parsed from YAML.
type Config struct {
	Addr    string        `yaml:"addr"`
	Dataset DatasetConfig `yaml:"dataset"`
	History HistoryConfig `yaml:"history"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Models  ModelsConfig  `yaml:"models"`
}

// DatasetConfig describes the queryable dataset.
type DatasetConfig struct {
	// CSV is the source file loaded at startup. Empty skips loading and
	// uses the existing database as-is.
	CSV   string `yaml:"csv"`
	Table string `yaml:"table"`
	DB    string `yaml:"db"`
}

// HistoryConfig describes the request history store.
type HistoryConfig struct {
	DB string `yaml:"db"`
}

// SandboxConfig describes the execution sandbox.
type SandboxConfig struct {
	// Backend selects the isolation strategy: "local" or "docker".
	Backend     string `yaml:"backend"`
	Interpreter string `yaml:"interpreter"`
	// Image is the container image used by the docker backend.
	Image string `yaml:"image"`
	// Timeout is the hard wall-clock deadline per execution (e.g. "30s").
	Timeout string `yaml:"timeout"`
}

// ModelsConfig names the model used by each collaborator.
type ModelsConfig struct {
	Moderator      string `yaml:"moderator"`
	Contextualizer string `yaml:"contextualizer"`
	Coder          string `yaml:"coder"`
}

// Load reads and parses a configuration from the given YAML file path, then
// applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Dataset.Table == "" {
		c.Dataset.Table = "fleet"
	}
	if c.Dataset.DB == "" {
		c.Dataset.DB = "data/dataset.db"
	}
	if c.History.DB == "" {
		c.History.DB = "data/history.db"
	}
	if c.Sandbox.Backend == "" {
		c.Sandbox.Backend = BackendLocal
	}
	if c.Sandbox.Interpreter == "" {
		c.Sandbox.Interpreter = "python3"
	}
	if c.Sandbox.Timeout == "" {
		c.Sandbox.Timeout = "30s"
	}
	defaultModel := "gemini-2.0-flash"
	if c.Models.Moderator == "" {
		c.Models.Moderator = defaultModel
	}
	if c.Models.Contextualizer == "" {
		c.Models.Contextualizer = defaultModel
	}
	if c.Models.Coder == "" {
		c.Models.Coder = defaultModel
	}
}

// ExecTimeout parses the sandbox deadline.
func (c *Config) ExecTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sandbox.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing sandbox.timeout: %w", err)
	}
	return d, nil
}

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Sandbox.Backend != BackendLocal && cfg.Sandbox.Backend != BackendDocker {
		errs = append(errs, ValidationError{
			Field:   "sandbox.backend",
			Message: fmt.Sprintf("must be %q or %q", BackendLocal, BackendDocker),
		})
	}
	if d, err := cfg.ExecTimeout(); err != nil {
		errs = append(errs, ValidationError{Field: "sandbox.timeout", Message: "is not a valid duration"})
	} else if d <= 0 {
		errs = append(errs, ValidationError{Field: "sandbox.timeout", Message: "must be positive"})
	}
	if cfg.Dataset.Table == "" {
		errs = append(errs, ValidationError{Field: "dataset.table", Message: "is required"})
	}
	return errs
}

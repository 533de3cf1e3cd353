// Package config provides configuration loading for agentd.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level agentd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Completion CompletionConfig `koanf:"completion"`
	Workspace  WorkspaceConfig  `koanf:"workspace"`
	Gate       GateConfig       `koanf:"gate"`
	Audit      AuditConfig      `koanf:"audit"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// CompletionConfig configures the text generation backend.
type CompletionConfig struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// WorkspaceConfig configures the local workspace provider.
type WorkspaceConfig struct {
	Root           string        `koanf:"root"`
	CommandTimeout time.Duration `koanf:"command_timeout"`
}

// GateConfig configures non-interactive approval policy and rate limits.
type GateConfig struct {
	ApproveModerate  bool `koanf:"approve_moderate"`
	ApproveDangerous bool `koanf:"approve_dangerous"`

	// Limits overrides the per-class rate budgets. Classes not listed
	// keep their defaults.
	Limits map[string]BudgetConfig `koanf:"limits"`
}

// BudgetConfig is one sliding-window rate budget.
type BudgetConfig struct {
	Window time.Duration `koanf:"window"`
	Max    int           `koanf:"max"`
	Burst  int           `koanf:"burst"`
}

// AuditConfig configures audit record export.
type AuditConfig struct {
	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Completion.BaseURL == "" {
		return fmt.Errorf("completion base_url required")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion model required")
	}

	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root required")
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8880
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "llama3"
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60 * time.Second
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "./workspace"
	}
	if cfg.Workspace.CommandTimeout == 0 {
		cfg.Workspace.CommandTimeout = 30 * time.Second
	}

	if cfg.Audit.NATSSubject == "" {
		cfg.Audit.NATSSubject = "agentd.audit"
	}
}

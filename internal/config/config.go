package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Yatra configuration
type Config struct {
	// Planner (model provider) configuration
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`

	// Coordinator configuration
	Coordinator CoordinatorConfig `json:"coordinator" mapstructure:"coordinator"`

	// Registry configuration
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`

	// Store configuration
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// PlannerConfig holds model provider configuration
type PlannerConfig struct {
	Provider           string  `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey             string  `json:"api_key" mapstructure:"api_key"`
	Model              string  `json:"model" mapstructure:"model"`
	MaxTokens          int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `json:"temperature" mapstructure:"temperature"`
	MaxTranscriptTurns int     `json:"max_transcript_turns" mapstructure:"max_transcript_turns"`
}

// CoordinatorConfig holds per-trip coordinator configuration
type CoordinatorConfig struct {
	MaxAttempts      int `json:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `json:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	AttemptTimeout   int `json:"attempt_timeout" mapstructure:"attempt_timeout"` // seconds
	MaxDurationDays  int `json:"max_duration_days" mapstructure:"max_duration_days"`
}

// RegistryConfig holds coordinator registry configuration
type RegistryConfig struct {
	IdleAfter     int `json:"idle_after" mapstructure:"idle_after"`         // seconds
	SweepInterval int `json:"sweep_interval" mapstructure:"sweep_interval"` // seconds
}

// StoreConfig holds trip store configuration
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Host            string `json:"host" mapstructure:"host"`
	Port            int    `json:"port" mapstructure:"port"`
	RequestTimeout  int    `json:"request_timeout" mapstructure:"request_timeout"`   // seconds
	ShutdownTimeout int    `json:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			Provider:           "anthropic",
			Model:              "claude-sonnet-4",
			MaxTokens:          4096,
			Temperature:        0.7,
			MaxTranscriptTurns: 40,
		},
		Coordinator: CoordinatorConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 500,
			AttemptTimeout:   60,
			MaxDurationDays:  30,
		},
		Registry: RegistryConfig{
			IdleAfter:     900,
			SweepInterval: 60,
		},
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  300,
			ShutdownTimeout: 15,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateProvider(c.Planner.Provider); err != nil {
		return err
	}
	if err := v.ValidateAPIKey(c.Planner.APIKey, c.Planner.Provider); err != nil {
		return err
	}
	if err := v.ValidateModel(c.Planner.Model); err != nil {
		return err
	}
	if c.Planner.Temperature != 0 {
		if err := v.ValidateTemperature(c.Planner.Temperature); err != nil {
			return err
		}
	}
	if c.Planner.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(c.Planner.MaxTokens); err != nil {
			return err
		}
	}

	if c.Coordinator.MaxAttempts < 1 {
		return fmt.Errorf("coordinator max_attempts must be >= 1")
	}
	if c.Coordinator.InitialBackoffMs < 0 {
		return fmt.Errorf("coordinator initial_backoff_ms must be >= 0")
	}
	if c.Coordinator.MaxDurationDays < 1 {
		return fmt.Errorf("coordinator max_duration_days must be >= 1")
	}

	if c.Registry.IdleAfter <= 0 {
		return fmt.Errorf("registry idle_after must be > 0")
	}
	if c.Registry.SweepInterval <= 0 {
		return fmt.Errorf("registry sweep_interval must be > 0")
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway port must be between 1 and 65535")
	}

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

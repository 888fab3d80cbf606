package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Planner.APIKey = "sk-ant-test-key"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "anthropic", cfg.Planner.Provider)
	assert.Equal(t, 3, cfg.Coordinator.MaxAttempts)
	assert.Equal(t, 30, cfg.Coordinator.MaxDurationDays)
	assert.Equal(t, 900, cfg.Registry.IdleAfter)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.Planner.APIKey = "" }, "API key"},
		{"bad anthropic key prefix", func(c *Config) { c.Planner.APIKey = "bogus" }, "sk-ant-"},
		{"unknown provider", func(c *Config) { c.Planner.Provider = "cohere" }, "invalid provider"},
		{"empty model", func(c *Config) { c.Planner.Model = "" }, "model name"},
		{"temperature out of range", func(c *Config) { c.Planner.Temperature = 1.5 }, "temperature"},
		{"zero max attempts", func(c *Config) { c.Coordinator.MaxAttempts = 0 }, "max_attempts"},
		{"zero max duration", func(c *Config) { c.Coordinator.MaxDurationDays = 0 }, "max_duration_days"},
		{"zero idle after", func(c *Config) { c.Registry.IdleAfter = 0 }, "idle_after"},
		{"bad port", func(c *Config) { c.Gateway.Port = 0 }, "port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidatorAPIKey(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateAPIKey("sk-ant-abc123", "anthropic"))
	assert.Error(t, v.ValidateAPIKey("sk-abc123", "anthropic"))
	assert.NoError(t, v.ValidateAPIKey("sk-abc123", "openai"))
	assert.Error(t, v.ValidateAPIKey("", "openai"))
}

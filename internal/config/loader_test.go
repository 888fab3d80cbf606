package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Planner.Provider)
	assert.Equal(t, 8080, cfg.Gateway.Port)
}

func TestLoaderReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yatra.json")
	payload := `{
		"planner": {"provider": "openai", "api_key": "sk-test", "model": "gpt-4o"},
		"gateway": {"port": 9090},
		"registry": {"idle_after": 300}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Planner.Provider)
	assert.Equal(t, "gpt-4o", cfg.Planner.Model)
	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, 300, cfg.Registry.IdleAfter)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Coordinator.MaxAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoaderAppliesPathDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yatra.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "`+dir+`"}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "yatra.log"), cfg.Logging.File)
	assert.Equal(t, filepath.Join(dir, "trips.db"), cfg.Store.Path)
}

func TestLoaderSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yatra.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Planner.APIKey = "sk-ant-saved"
	cfg.Gateway.Port = 9999
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-saved", loaded.Planner.APIKey)
	assert.Equal(t, 9999, loaded.Gateway.Port)
}

func TestLoaderInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yatra.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/yatra/internal/config"
	"github.com/harun/yatra/internal/logger"
)

func testDaemonConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Planner.APIKey = "sk-ant-test-key"
	cfg.DataDir = dir
	cfg.Store.Path = filepath.Join(dir, "trips.db")
	cfg.Logging.File = ""
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestNew(t *testing.T) {
	cfg := testDaemonConfig(t)

	d, err := New(cfg, testLogger(t))
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.NotNil(t, d.GetRegistry())
	assert.NotNil(t, d.GetGatewayServer())
	assert.Equal(t, cfg, d.GetConfig())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testDaemonConfig(t)
	cfg.Planner.Provider = "cohere"

	_, err := New(cfg, testLogger(t))
	assert.Error(t, err)
}

func TestStatusWhenNotRunning(t *testing.T) {
	d, err := New(testDaemonConfig(t), testLogger(t))
	require.NoError(t, err)

	status := d.Status()
	assert.False(t, status.Running)
	assert.Zero(t, status.Uptime)
}

func TestStopWithoutStart(t *testing.T) {
	d, err := New(testDaemonConfig(t), testLogger(t))
	require.NoError(t, err)

	assert.Error(t, d.Stop())
}

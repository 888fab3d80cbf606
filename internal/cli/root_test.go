package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRootCmd(t *testing.T) {
	cmd := GetRootCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "yatra", cmd.Use)
	assert.Equal(t, version, cmd.Version)
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := GetRootCmd()

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["start"])
	assert.True(t, names["stop"])
	assert.True(t, names["status"])
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version, GetVersion())
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.pid")
		require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

		pid, err := readPIDFile(path)
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := readPIDFile(filepath.Join(dir, "missing.pid"))
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.pid")
		require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

		_, err := readPIDFile(path)
		assert.Error(t, err)
	})
}

func TestIsRunning(t *testing.T) {
	dir := t.TempDir()

	t.Run("no pid file", func(t *testing.T) {
		assert.False(t, isRunning(filepath.Join(dir, "nope.pid")))
	})

	t.Run("own pid", func(t *testing.T) {
		path := filepath.Join(dir, "self.pid")
		require.NoError(t, writePIDFile(path))
		assert.True(t, isRunning(path))
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{2*time.Minute + 3*time.Second, "2m3s"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

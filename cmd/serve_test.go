package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPidFile_Path(t *testing.T) {
	dir, _ := testEnv(t)

	assert.Equal(t, filepath.Join(dir, "zeit-serve.pid"), pidFile().Path)

	viper.Set("state_dir", "/var/lib/zeit")
	assert.Equal(t, "/var/lib/zeit/zeit-serve.pid", pidFile().Path)
}

func TestServeStatusRun_NotRunning(t *testing.T) {
	_, out := testEnv(t)

	require.NoError(t, serveStatusRun())
	assert.Contains(t, out.String(), "not running")
}

func TestServeStatusRun_Running(t *testing.T) {
	_, out := testEnv(t)
	require.NoError(t, pidFile().Acquire())
	t.Cleanup(func() { _ = pidFile().Release() })

	require.NoError(t, serveStatusRun())
	assert.Contains(t, out.String(), "Server running")
}

func TestServeStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestServeStartRun_AlreadyRunning(t *testing.T) {
	testEnv(t)

	// The test process itself is alive.
	require.NoError(t, pidFile().Acquire())
	t.Cleanup(func() { _ = pidFile().Release() })

	err := serveStartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServeStartRun_DryRun(t *testing.T) {
	_, out := testEnv(t)
	dryRun = true
	ui.DryRun = true

	require.NoError(t, serveStartRun())
	assert.Contains(t, out.String(), "Would serve the API on :8080")
	_, running := pidFile().IsRunning()
	assert.False(t, running)
}

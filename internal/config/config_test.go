package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DISPATCHER_URL", "AGENT_AUTH_TOKEN", "WORKSPACE_ROOT", "DOCKER_HOST",
		"ADMIN_BIND_ADDR", "ENVIRONMENT", "RECONNECT_DELAY", "RESOURCE_SAMPLE_INTERVAL",
		"HOST_MEMORY_MIB",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/agent", cfg.DispatcherURL)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISPATCHER_URL", "wss://dispatcher.example.com/agent")
	t.Setenv("RECONNECT_DELAY", "250ms")
	t.Setenv("HOST_MEMORY_MIB", "8192")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://dispatcher.example.com/agent", cfg.DispatcherURL)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, 8192.0, cfg.HostMemoryMiB)
}

func TestLoadFallsBackOnUnparseableDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECONNECT_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
}

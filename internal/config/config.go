// Package config loads the agent's ambient configuration from the
// environment (and an optional .env file), the way the platform's own
// services resolve their settings at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the agent's immutable runtime configuration, built once in
// main and threaded through the rest of the process.
type Config struct {
	DispatcherURL          string
	AuthToken              string
	WorkspaceRoot          string
	DockerHost             string
	ReconnectDelay         time.Duration
	ResourceSampleInterval time.Duration
	AdminBindAddr          string
	Environment            string
	HostMemoryMiB          float64
}

// Load reads configuration from the process environment, having first
// loaded a .env file if one is present in the working directory (a
// missing .env is not an error, matching godotenv's typical dev-only use).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		DispatcherURL:          envOr("DISPATCHER_URL", "ws://localhost:8080/agent"),
		AuthToken:              os.Getenv("AGENT_AUTH_TOKEN"),
		WorkspaceRoot:          envOr("WORKSPACE_ROOT", "./temp"),
		DockerHost:             os.Getenv("DOCKER_HOST"),
		AdminBindAddr:          envOr("ADMIN_BIND_ADDR", ":9090"),
		Environment:            envOr("ENVIRONMENT", "development"),
		ReconnectDelay:         envDuration("RECONNECT_DELAY", time.Second),
		ResourceSampleInterval: envDuration("RESOURCE_SAMPLE_INTERVAL", 5*time.Second),
		HostMemoryMiB:          envFloat("HOST_MEMORY_MIB", 4096),
	}

	if cfg.DispatcherURL == "" {
		return nil, fmt.Errorf("DISPATCHER_URL must not be empty")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Command agent is the execution-agent process: it connects to the
// dispatcher over a persistent websocket Link, compiles and runs submitted
// jobs in hardened Docker containers, and reports results and telemetry
// back over the same connection.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execagent/internal/agent"
	"execagent/internal/config"
	"execagent/internal/executor"
	"execagent/internal/harness"
	"execagent/internal/languageprofile"
	"execagent/internal/link"
	"execagent/internal/logging"
	"execagent/internal/metrics"
	"execagent/internal/protocol"
	"execagent/internal/sandbox"
	"execagent/internal/telemetry"
	"execagent/internal/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	registry := languageprofile.Default()

	wsManager, err := workspace.NewManager(cfg.WorkspaceRoot)
	if err != nil {
		log.Fatal("failed to initialize workspace manager", zap.Error(err))
	}
	wsManager.Sweep()

	driver, err := sandbox.NewDriver(cfg.DockerHost)
	if err != nil {
		log.Fatal("failed to connect to docker daemon", zap.Error(err))
	}
	defer driver.Close()

	probe := telemetry.NewProbe(driver.Client(), cfg.HostMemoryMiB)

	exec := executor.New(registry, wsManager, driver, harness.For)

	headers := http.Header{}
	if cfg.AuthToken != "" {
		headers.Set("Authorization", "Bearer "+cfg.AuthToken)
	}
	l := link.New(cfg.DispatcherURL, headers, cfg.ReconnectDelay)

	agentID := uuid.New().String()
	coordinator := agent.New(agentID, l, exec, probe, registry, protocol.RegisterResources{
		CPU:    estimatedCPUCapacity(registry),
		Memory: estimatedMemoryCapacityMiB(registry),
	})

	admin := metrics.NewAdminServer(cfg.AdminBindAddr)
	go func() {
		if err := admin.Run(); err != nil {
			log.Error("admin server exited", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	runErrs := make(chan error, 1)
	go func() { runErrs <- coordinator.Run(ctx) }()

	log.Info("agent started", zap.String("agentId", agentID), zap.String("dispatcherUrl", cfg.DispatcherURL), zap.String("adminAddr", cfg.AdminBindAddr))

	select {
	case sig := <-quit:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-runErrs:
		log.Error("agent coordinator exited", zap.Error(err))
	}

	cancel()
	l.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin server shutdown error", zap.Error(err))
	}
}

// estimatedCPUCapacity and estimatedMemoryCapacityMiB report a coarse
// static capacity figure (4 cores, 4096 MiB, whatever the registry holds)
// that the register message falls back to when the telemetry probe cannot
// be sampled at connect time.
func estimatedCPUCapacity(registry *languageprofile.Registry) int {
	return 4
}

func estimatedMemoryCapacityMiB(registry *languageprofile.Registry) int {
	return 4096
}

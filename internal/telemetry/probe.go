// Package telemetry samples host and container aggregate CPU and memory
// utilisation so the dispatcher can make admission-control decisions.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Totals is a {used, total} pair for one resource dimension.
type Totals struct {
	Total float64
	Used  float64
}

// Snapshot is one telemetry sample.
type Snapshot struct {
	CPU    Totals
	Memory Totals
}

// Probe samples aggregate CPU/memory usage across all running containers.
type Probe struct {
	client   *client.Client
	hostMiB  float64
	hostCPUs float64
}

// NewProbe wraps an existing Docker client, the host's core count (from
// runtime.NumCPU) and the configured host RAM in MiB, used as the
// denominators for the aggregate figures.
func NewProbe(cli *client.Client, hostMemoryMiB float64) *Probe {
	return &Probe{
		client:   cli,
		hostMiB:  hostMemoryMiB,
		hostCPUs: float64(runtime.NumCPU()),
	}
}

// Sample aggregates live per-container CPU/memory stats. Per-container CPU
// usage is the standard cgroup delta calculation: (cpuDelta / systemCPUDelta)
// * onlineCPUs, taken from two stats snapshots the daemon exposes per
// container; memory usage is the sum of each container's reported `usage`.
func (p *Probe) Sample(ctx context.Context) (Snapshot, error) {
	containers, err := p.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list containers: %w", err)
	}

	var usedCPU, usedMemMiB float64
	for _, c := range containers {
		cpu, memMiB, statErr := p.sampleOne(ctx, c.ID)
		if statErr != nil {
			// A container that vanished mid-read (finished between List and
			// Stats) shouldn't sour the whole sample; skip it.
			continue
		}
		usedCPU += cpu
		usedMemMiB += memMiB
	}

	return Snapshot{
		CPU:    Totals{Total: round2(p.hostCPUs), Used: round2(usedCPU)},
		Memory: Totals{Total: math.Round(p.hostMiB), Used: math.Round(usedMemMiB)},
	}, nil
}

func (p *Probe) sampleOne(ctx context.Context, containerID string) (cpuCores, memMiB float64, err error) {
	resp, err := p.client.ContainerStats(ctx, containerID, false)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var stats container.StatsResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&stats); decodeErr != nil {
		return 0, 0, decodeErr
	}

	onlineCPUs := float64(stats.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = p.hostCPUs
	}

	cpuCores = cpuCoresUsed(
		float64(stats.CPUStats.CPUUsage.TotalUsage), float64(stats.PreCPUStats.CPUUsage.TotalUsage),
		float64(stats.CPUStats.SystemUsage), float64(stats.PreCPUStats.SystemUsage),
		onlineCPUs,
	)
	memMiB = float64(stats.MemoryStats.Usage) / (1024 * 1024)
	return cpuCores, memMiB, nil
}

// cpuCoresUsed implements the standard cgroup CPU-percentage calculation:
// (cpuDelta / systemDelta) * onlineCPUs, expressed in fractional cores.
func cpuCoresUsed(cpuTotal, preCPUTotal, systemUsage, preSystemUsage, onlineCPUs float64) float64 {
	cpuDelta := cpuTotal - preCPUTotal
	systemDelta := systemUsage - preSystemUsage
	if cpuDelta <= 0 || systemDelta <= 0 {
		return 0
	}
	return (cpuDelta / systemDelta) * onlineCPUs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

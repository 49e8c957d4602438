package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPUCoresUsedStandardDelta(t *testing.T) {
	// 200ms of CPU time consumed out of 1000ms of wall time, on a 4-core host.
	got := cpuCoresUsed(1_200_000_000, 1_000_000_000, 10_000_000_000, 9_000_000_000, 4)
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestCPUCoresUsedZeroOnNoElapsedSystemTime(t *testing.T) {
	got := cpuCoresUsed(1_200_000_000, 1_000_000_000, 5_000_000_000, 5_000_000_000, 4)
	assert.Zero(t, got)
}

func TestCPUCoresUsedZeroOnNegativeDelta(t *testing.T) {
	got := cpuCoresUsed(900_000_000, 1_000_000_000, 10_000_000_000, 9_000_000_000, 4)
	assert.Zero(t, got)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.2345))
	assert.Equal(t, 1.24, round2(1.236))
}

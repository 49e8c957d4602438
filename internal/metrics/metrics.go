// Package metrics exposes the agent's own Prometheus gauges and counters:
// the host telemetry last sampled by TelemetryProbe, and a running count of
// completed jobs by language and outcome.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cpuCoresTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execagent_host_cpu_cores_total",
		Help: "Total CPU cores reported by the host, as last sampled by the telemetry probe.",
	})
	cpuCoresUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execagent_host_cpu_cores_used",
		Help: "CPU cores currently in use across running job containers, as last sampled.",
	})
	memoryMiBTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execagent_host_memory_mib_total",
		Help: "Total host memory in MiB configured for telemetry denominators.",
	})
	memoryMiBUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execagent_host_memory_mib_used",
		Help: "Host memory in MiB currently in use across running job containers, as last sampled.",
	})
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execagent_jobs_total",
		Help: "Completed jobs by language and outcome.",
	}, []string{"language", "outcome"})
)

// ObserveSnapshot records a telemetry sample taken around a job. Callers
// skip this entirely when sampling failed, rather than publish a stale or
// zeroed reading.
func ObserveSnapshot(cpuTotal, cpuUsed, memTotalMiB, memUsedMiB float64) {
	cpuCoresTotal.Set(cpuTotal)
	cpuCoresUsed.Set(cpuUsed)
	memoryMiBTotal.Set(memTotalMiB)
	memoryMiBUsed.Set(memUsedMiB)
}

// ObserveJob records one completed job's terminal outcome.
func ObserveJob(language string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	jobsTotal.WithLabelValues(language, outcome).Inc()
}

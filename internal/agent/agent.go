// Package agent wires the Link, JobExecutor, and TelemetryProbe together
// into the top-level per-process coordinator: one goroutine reads inbound
// frames off the Link, and each task message is dispatched to its own
// goroutine so a slow or wedged job never blocks the next task arriving
// or the connection's read loop.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"execagent/internal/languageprofile"
	"execagent/internal/link"
	"execagent/internal/logging"
	"execagent/internal/metrics"
	"execagent/internal/protocol"
	"execagent/internal/telemetry"

	"go.uber.org/zap"
)

// Runner executes one job to completion. Satisfied by *executor.Executor;
// an interface here so the coordinator's dispatch/ordering logic can be
// exercised with a stub and no Docker daemon.
type Runner interface {
	Execute(ctx context.Context, job protocol.Job) (*protocol.JobOutcome, error)
}

// Sampler reports current telemetry. Satisfied by *telemetry.Probe.
type Sampler interface {
	Sample(ctx context.Context) (telemetry.Snapshot, error)
}

// Sender delivers one outbound message, dropping it if the connection is
// down. Satisfied by *link.Link.
type Sender interface {
	Send(v interface{})
}

// Agent is the process-level coordinator: one Link, one JobExecutor, one
// TelemetryProbe, dispatching inbound task messages concurrently.
type Agent struct {
	id        string
	link      *link.Link
	sender    Sender
	runner    Runner
	probe     Sampler
	registry  *languageprofile.Registry
	resources protocol.RegisterResources
}

// New builds an Agent. The register message sent on every new connection
// carries the probe's sampled CPU and memory totals; resources is the coarse
// static capacity advertised instead when that sample fails.
func New(id string, l *link.Link, ex Runner, probe Sampler, registry *languageprofile.Registry, resources protocol.RegisterResources) *Agent {
	a := &Agent{id: id, link: l, sender: l, runner: ex, probe: probe, registry: registry, resources: resources}
	l.OnConnect(a.handleConnect)
	return a
}

// Run drives the Link and blocks, dispatching inbound task messages until
// ctx is cancelled. The Link's own reconnect loop runs in a separate
// goroutine started here.
func (a *Agent) Run(ctx context.Context) error {
	go a.link.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-a.link.Inbound:
			a.dispatch(ctx, in)
		}
	}
}

func (a *Agent) handleConnect() {
	resources := a.resources
	if snap, err := a.probe.Sample(context.Background()); err == nil {
		resources = protocol.RegisterResources{CPU: int(snap.CPU.Total), Memory: int(snap.Memory.Total)}
	}
	a.sender.Send(protocol.RegisterMessage{
		Type:      protocol.TypeRegister,
		AgentID:   a.id,
		Timestamp: nowMillis(),
		Resources: resources,
	})
}

func (a *Agent) dispatch(ctx context.Context, in link.Inbound) {
	if in.Type != protocol.TypeTask {
		logging.L().Debug("ignoring inbound message of unknown type", zap.String("type", in.Type))
		return
	}
	var msg protocol.TaskMessage
	if err := json.Unmarshal(in.Raw, &msg); err != nil {
		logging.L().Warn("malformed task message", zap.Error(err))
		a.sender.Send(protocol.ErrorMessage{
			Type:      protocol.TypeError,
			AgentID:   a.id,
			Timestamp: nowMillis(),
			Error:     "malformed task message: " + err.Error(),
		})
		return
	}
	go a.runJob(ctx, msg.Task)
}

// runJob executes one job end to end and emits its before/terminal/after
// messages in the order the dispatcher relies on for correlation by
// taskId. A panic anywhere in Execute is converted into a taskError so
// one bad job can never take the whole agent down.
func (a *Agent) runJob(ctx context.Context, job protocol.Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("job goroutine panicked", zap.Any("recover", r), zap.String("taskId", job.ID))
			a.emitTaskError(ctx, job, "Internal agent error")
			a.emitResourceUpdate(ctx)
		}
	}()

	a.emitResourceUpdateAdmitting(ctx, job)

	start := time.Now()
	outcome, err := a.runner.Execute(ctx, job)
	elapsed := time.Since(start)

	if err != nil {
		a.emitTaskErrorSampled(ctx, job, err)
		metrics.ObserveJob(job.Language, false)
	} else {
		a.emitTaskComplete(ctx, job, outcome, elapsed)
		metrics.ObserveJob(job.Language, outcome.Success)
	}

	a.emitResourceUpdate(ctx)
}

func (a *Agent) emitResourceUpdateAdmitting(ctx context.Context, job protocol.Job) {
	metrics, ok := a.sampleMetrics(ctx)
	if !ok {
		return
	}
	if profile, found := a.registry.Lookup(job.Language); found {
		metrics.CPU.Used += profile.CPULimitCores
		metrics.Memory.Used += float64(profile.MemoryLimitMiB)
	}
	a.sendResourceUpdate(metrics)
}

func (a *Agent) emitResourceUpdate(ctx context.Context) {
	metrics, ok := a.sampleMetrics(ctx)
	if !ok {
		return
	}
	a.sendResourceUpdate(metrics)
}

func (a *Agent) sendResourceUpdate(metrics protocol.Metrics) {
	a.sender.Send(protocol.ResourceUpdateMessage{
		Type:      protocol.TypeResourceUpdate,
		AgentID:   a.id,
		Timestamp: nowMillis(),
		Metrics:   metrics,
	})
}

func (a *Agent) emitTaskComplete(ctx context.Context, job protocol.Job, outcome *protocol.JobOutcome, elapsed time.Duration) {
	// taskComplete is the terminal message for this taskId and must always be
	// sent (§7's one-terminal-message-per-job invariant); a failed sample
	// only means its embedded telemetry is best-effort zero rather than the
	// whole message being skipped, unlike the standalone resourceUpdate.
	metrics, _ := a.sampleMetrics(ctx)
	profile, _ := a.registry.Lookup(job.Language)

	a.sender.Send(protocol.TaskCompleteMessage{
		Type:      protocol.TypeTaskComplete,
		AgentID:   a.id,
		Timestamp: nowMillis(),
		TaskID:    job.ID,
		Result:    *outcome,
		Metrics: protocol.TaskCompleteMetrics{
			ExecutionTimeMs: elapsed.Milliseconds(),
			Language:        job.Language,
			Resources:       metrics,
			LangConfig:      langConfigOf(profile),
		},
	})
}

func (a *Agent) emitTaskErrorSampled(ctx context.Context, job protocol.Job, err error) {
	metrics, _ := a.sampleMetrics(ctx)
	a.sender.Send(protocol.TaskErrorMessage{
		Type:      protocol.TypeTaskError,
		AgentID:   a.id,
		Timestamp: nowMillis(),
		TaskID:    job.ID,
		Error:     err.Error(),
		Language:  job.Language,
		Resources: metrics,
	})
}

func (a *Agent) emitTaskError(ctx context.Context, job protocol.Job, message string) {
	metrics, _ := a.sampleMetrics(ctx)
	a.sender.Send(protocol.TaskErrorMessage{
		Type:      protocol.TypeTaskError,
		AgentID:   a.id,
		Timestamp: nowMillis(),
		TaskID:    job.ID,
		Error:     message,
		Language:  job.Language,
		Resources: metrics,
	})
}

// sampleMetrics reports the current telemetry snapshot. Its second return
// value is false when sampling failed: the standalone resourceUpdate
// emitters then skip their message (spec §4.6/§7) rather than send a
// fabricated all-zero snapshot the dispatcher would read as "host idle",
// while the terminal taskComplete/taskError messages are still sent with
// zero-valued telemetry.
func (a *Agent) sampleMetrics(ctx context.Context) (protocol.Metrics, bool) {
	snap, err := a.probe.Sample(ctx)
	if err != nil {
		logging.L().Debug("telemetry sample failed, skipping publication", zap.Error(err))
		return protocol.Metrics{}, false
	}
	metrics.ObserveSnapshot(snap.CPU.Total, snap.CPU.Used, snap.Memory.Total, snap.Memory.Used)
	return protocol.Metrics{
		CPU:    protocol.ResourceTotals{Total: snap.CPU.Total, Used: snap.CPU.Used},
		Memory: protocol.ResourceTotals{Total: snap.Memory.Total, Used: snap.Memory.Used},
	}, true
}

func langConfigOf(p languageprofile.Profile) protocol.LangConfig {
	runCommand := ""
	if len(p.RunArgv) > 0 {
		runCommand = p.RunArgv[0]
	}
	return protocol.LangConfig{
		CPULimit:      p.CPULimitCores,
		MemoryLimit:   p.MemoryLimitMiB,
		TimeoutMillis: p.Timeout.Milliseconds(),
		Image:         p.Image,
		FileExtension: p.FileExtension,
		RunCommand:    runCommand,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Package executor composes Workspace, Sandbox, and ResultParser into the
// end-to-end run of a single job: the optional compile step, the timed run
// step, and guaranteed cleanup on every exit path.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"execagent/internal/execerr"
	"execagent/internal/languageprofile"
	"execagent/internal/logging"
	"execagent/internal/protocol"
	"execagent/internal/resultparser"
	"execagent/internal/sandbox"
	"execagent/internal/workspace"

	"go.uber.org/zap"
)

const compileLogTailLimit = 64 * 1024

// Sandbox is the subset of the container driver JobExecutor depends on. It
// is an interface so tests can substitute a stub and exercise the full
// timeout/race/cleanup algorithm without a Docker daemon.
type Sandbox interface {
	BuildCompileContainer(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace) (*sandbox.Container, error)
	BuildRunContainer(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace, entryArg string) (*sandbox.Container, error)
	Run(ctx context.Context, c *sandbox.Container) (logStream io.ReadCloser, outcome <-chan sandbox.WaitOutcome, err error)
	Dispose(c *sandbox.Container)
}

// Executor runs jobs to completion.
type Executor struct {
	registry  *languageprofile.Registry
	workspace *workspace.Manager
	sandbox   Sandbox
	harness   func(language string) string
}

// New builds an Executor. harnessFor returns the opaque test-harness source
// template for a language (containing the single {{TEST_CASES}} token); its
// content is out of this package's concern (see package harness).
func New(registry *languageprofile.Registry, ws *workspace.Manager, sb Sandbox, harnessFor func(language string) string) *Executor {
	return &Executor{registry: registry, workspace: ws, sandbox: sb, harness: harnessFor}
}

// Execute runs one job to completion, returning its JobOutcome or an
// *execerr.Error describing why it failed.
func (e *Executor) Execute(ctx context.Context, job protocol.Job) (*protocol.JobOutcome, error) {
	profile, ok := e.registry.Lookup(job.Language)
	if !ok {
		return nil, execerr.New(execerr.UnsupportedLanguage, fmt.Sprintf("Unsupported language: %s", job.Language))
	}

	ws, err := e.workspace.Create(profile, job.Code, job.TestCases, e.harness(profile.Language))
	if err != nil {
		return nil, execerr.Wrap(execerr.WorkspaceError, "failed to prepare workspace", err)
	}
	defer e.workspace.Destroy(ws)

	if len(profile.CompileArgv) > 0 {
		if cerr := e.compile(ctx, profile, ws); cerr != nil {
			return nil, cerr
		}
	}

	return e.run(ctx, profile, ws)
}

func (e *Executor) compile(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace) error {
	c, err := e.sandbox.BuildCompileContainer(ctx, profile, ws)
	if err != nil {
		return execerr.Wrap(execerr.SandboxError, "failed to create compile container", err)
	}
	defer e.sandbox.Dispose(c)

	logStream, outcome, err := e.sandbox.Run(ctx, c)
	if err != nil {
		return execerr.Wrap(execerr.SandboxError, "failed to start compile container", err)
	}
	defer logStream.Close()

	tail := newTailBuffer(compileLogTailLimit)
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(tail, logStream)
		close(done)
	}()

	result := <-outcome
	<-done

	if result.Err != nil {
		return execerr.Wrap(execerr.SandboxError, "compile container wait failed", result.Err)
	}
	if result.ExitCode != 0 {
		return execerr.New(execerr.CompileError, "Compilation failed: "+tail.String())
	}
	return nil
}

func (e *Executor) run(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace) (*protocol.JobOutcome, error) {
	entryArg := profile.TestFilename
	if len(profile.CompileArgv) > 0 {
		entryArg = profile.CompiledArtifactArg
	}

	c, err := e.sandbox.BuildRunContainer(ctx, profile, ws, entryArg)
	if err != nil {
		return nil, execerr.Wrap(execerr.SandboxError, "failed to create run container", err)
	}

	logStream, outcome, err := e.sandbox.Run(ctx, c)
	if err != nil {
		e.sandbox.Dispose(c)
		return nil, execerr.Wrap(execerr.SandboxError, "failed to start run container", err)
	}
	defer logStream.Close()

	timeout := profile.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	parser := resultparser.New()
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		buf := make([]byte, 32*1024)
		for {
			n, readErr := logStream.Read(buf)
			if n > 0 {
				parser.Feed(buf[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	select {
	case <-timer.C:
		// The timer won the race even if a final_result arrived moments
		// before it fired; the timeout path disposes the container
		// regardless of what the parser already captured.
		e.sandbox.Dispose(c)
		<-pumped
		logging.L().Warn("job execution timed out", zap.Duration("timeout", timeout))
		return nil, execerr.New(execerr.ExecutionTimeout, "Execution timeout")

	case result := <-outcome:
		timer.Stop()
		<-pumped
		e.sandbox.Dispose(c)

		if result.Err != nil {
			return nil, execerr.Wrap(execerr.SandboxError, "run container wait failed", result.Err)
		}
		if result.ExitCode != 0 {
			return nil, execerr.New(execerr.ContainerExit, fmt.Sprintf("Container exited with code %d", result.ExitCode))
		}

		final := parser.Final()
		if final == nil {
			return nil, execerr.New(execerr.NoResult, "No test results received")
		}

		cases := make([]json.RawMessage, 0, len(final.Cases))
		for _, cr := range final.Cases {
			b, _ := json.Marshal(cr)
			cases = append(cases, b)
		}

		return &protocol.JobOutcome{
			Success:       final.Failed == 0,
			Total:         final.Total,
			Passed:        final.Passed,
			Failed:        final.Failed,
			ExecutionTime: final.ExecutionTime,
			Cases:         cases,
		}, nil
	}
}

// Package sandbox drives container creation, supervision, and teardown for
// a single job's compile and run steps, using the Docker Engine API.
package sandbox

import (
	"context"
	"fmt"
	"io"

	"execagent/internal/languageprofile"
	"execagent/internal/logging"
	"execagent/internal/workspace"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Container is a handle to a created (and possibly started) container.
type Container struct {
	ID    string
	Image string
}

// Driver creates, starts, streams logs from, and tears down containers.
type Driver struct {
	client *client.Client
}

// NewDriver connects to the Docker daemon at dockerHost (empty uses the
// environment-configured default, e.g. DOCKER_HOST or the local socket).
func NewDriver(dockerHost string) (*Driver, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if dockerHost != "" {
		opts = append(opts, client.WithHost(dockerHost))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client init: %w", err)
	}
	return &Driver{client: cli}, nil
}

// Close releases the underlying Docker client.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Client returns the underlying Docker API client, so collaborators like
// TelemetryProbe can share one connection instead of dialing the daemon
// a second time.
func (d *Driver) Client() *client.Client {
	return d.client
}

// BuildCompileContainer creates (but does not start) a pre-pass container
// running profile.CompileArgv against the workspace's source files.
func (d *Driver) BuildCompileContainer(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace) (*Container, error) {
	argv := append(append([]string{}, profile.CompileArgv...), profile.SolutionFilename, profile.TestFilename)
	return d.create(ctx, profile, ws, argv, "compile")
}

// BuildRunContainer creates (but does not start) the main container running
// profile.RunArgv against the given entry argument (compiled artifact name
// or the harness filename, depending on the language).
func (d *Driver) BuildRunContainer(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace, entryArg string) (*Container, error) {
	argv := append([]string{}, profile.RunArgv...)
	if entryArg != "" {
		argv = append(argv, entryArg)
	}
	return d.create(ctx, profile, ws, argv, "run")
}

func (d *Driver) create(ctx context.Context, profile languageprofile.Profile, ws *workspace.Workspace, argv []string, role string) (*Container, error) {
	memoryBytes := profile.MemoryLimitMiB * 1024 * 1024
	if memoryBytes <= 0 {
		memoryBytes = 256 * 1024 * 1024
	}
	nanoCPUs := int64(profile.CPULimitCores * 1_000_000_000)
	if nanoCPUs <= 0 {
		nanoCPUs = 500_000_000
	}
	pidsLimit := int64(128)

	hostCfg := &container.HostConfig{
		AutoRemove:     true,
		ReadonlyRootfs: true,
		SecurityOpt:    []string{"no-new-privileges:true"},
		CapDrop:        []string{"ALL"},
		NetworkMode:    "none",
		Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=64m"},
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: ws.Dir, Target: "/code"},
		},
		Resources: container.Resources{
			Memory:     memoryBytes,
			MemorySwap: memoryBytes,
			NanoCPUs:   nanoCPUs,
			PidsLimit:  &pidsLimit,
		},
	}

	name := fmt.Sprintf("execagent-%s-%s", role, uuid.New().String())
	created, err := d.client.ContainerCreate(ctx, &container.Config{
		Image:           profile.Image,
		WorkingDir:      "/code",
		Cmd:             argv,
		AttachStdout:    true,
		AttachStderr:    true,
		NetworkDisabled: true,
	}, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return nil, fmt.Errorf("container create (%s): %w", role, err)
	}

	return &Container{ID: created.ID, Image: profile.Image}, nil
}

// WaitOutcome is the result of awaiting a container's exit.
type WaitOutcome struct {
	ExitCode int64
	Err      error
}

// Run starts the container and returns a reader of its combined
// stdout+stderr stream (demultiplexed), and a channel that receives exactly
// one WaitOutcome when the container stops running (or the wait itself
// fails, in which case Err is set).
func (d *Driver) Run(ctx context.Context, c *Container) (logStream io.ReadCloser, outcome <-chan WaitOutcome, err error) {
	if startErr := d.client.ContainerStart(ctx, c.ID, container.StartOptions{}); startErr != nil {
		return nil, nil, fmt.Errorf("container start: %w", startErr)
	}

	rc, logErr := d.client.ContainerLogs(ctx, c.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if logErr != nil {
		return nil, nil, fmt.Errorf("container logs: %w", logErr)
	}

	wc, ec := d.client.ContainerWait(ctx, c.ID, container.WaitConditionNotRunning)
	out := make(chan WaitOutcome, 1)
	go func() {
		select {
		case resp := <-wc:
			out <- WaitOutcome{ExitCode: resp.StatusCode}
		case waitErr := <-ec:
			out <- WaitOutcome{Err: waitErr}
		}
	}()

	return &demuxReader{raw: rc}, out, nil
}

// Kill sends SIGKILL to a running container, best-effort.
func (d *Driver) Kill(c *Container) {
	if err := d.client.ContainerKill(context.Background(), c.ID, "SIGKILL"); err != nil {
		logging.L().Debug("container kill failed (may have already exited)", zap.String("container", c.ID), zap.Error(err))
	}
}

// Dispose stops (if still running) and force-removes the container. This is
// the belt-and-braces backup to the daemon's own AutoRemove: a container
// that already vanished on its own (the common case) makes ContainerRemove
// fail with a routine "no such container" error, logged at Debug rather
// than Warn; any other failure still can't be allowed to fail a job that
// has already produced its outcome.
func (d *Driver) Dispose(c *Container) {
	if c == nil {
		return
	}
	ctx := context.Background()
	d.Kill(c)
	if err := d.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
		logging.L().Debug("container remove failed (may have been auto-removed already)", zap.String("container", c.ID), zap.Error(err))
	}
}

// demuxReader lazily demultiplexes the Docker stdcopy frame format into a
// single combined stdout+stderr byte stream using an in-process pipe.
type demuxReader struct {
	raw     io.ReadCloser
	pr      *io.PipeReader
	started bool
}

func (d *demuxReader) ensureStarted() {
	if d.started {
		return
	}
	d.started = true
	pr, pw := io.Pipe()
	d.pr = pr
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, d.raw)
		pw.CloseWithError(err)
	}()
}

func (d *demuxReader) Read(p []byte) (int, error) {
	d.ensureStarted()
	return d.pr.Read(p)
}

func (d *demuxReader) Close() error {
	if d.pr != nil {
		_ = d.pr.Close()
	}
	return d.raw.Close()
}

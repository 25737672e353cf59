package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

const (
	sandboxPrefix     = "collab-run-"
	sandboxDockerfile = ".collab-sandbox.Dockerfile"
	sandboxWorkdir    = "/app"

	// teardownTimeout bounds cleanup, which runs after the execution deadline.
	teardownTimeout = 30 * time.Second
)

// Limits are the resource caps applied to every sandbox container.
type Limits struct {
	MemoryMB  int64
	PidsLimit int64
	NanoCPUs  int64
}

// ContainerAPI is the subset of container engine operations the sandbox needs.
type ContainerAPI interface {
	BuildImage(ctx context.Context, tag string, buildContext io.Reader) error
	StartContainer(ctx context.Context, name, image string, keepAlive time.Duration, limits Limits) error
	Exec(ctx context.Context, name string, argv []string) (*Outcome, error)
	RemoveContainer(ctx context.Context, name string) error
	RemoveImage(ctx context.Context, tag string) error
}

// DockerRunner runs jobs inside a disposable image built from the workspace.
// Build and run both happen in one container; the image and container share
// the unique sandbox name and are always torn down by that name.
type DockerRunner struct {
	api    ContainerAPI
	limits Limits
	logger *zap.Logger
}

// NewDockerRunner creates a sandbox runner over the given container API.
func NewDockerRunner(api ContainerAPI, limits Limits, logger *zap.Logger) *DockerRunner {
	return &DockerRunner{api: api, limits: limits, logger: logger}
}

var _ Runner = (*DockerRunner)(nil)

// SandboxName returns the image tag and container name used for an execution.
func SandboxName(executionID string) string {
	return sandboxPrefix + executionID
}

func (r *DockerRunner) Run(ctx context.Context, job *Job) (*Outcome, error) {
	name := SandboxName(job.ID)
	defer r.teardown(ctx, job.ID, name)

	buildContext, err := sandboxContext(job.Workspace.Dir, job.Profile.Image)
	if err != nil {
		return nil, err
	}
	if err := r.api.BuildImage(ctx, name, buildContext); err != nil {
		if ctx.Err() != nil {
			return &Outcome{Phase: PhaseBuild, ExitCode: -1}, nil
		}
		return nil, fmt.Errorf("sandbox: build image: %w", err)
	}

	keepAlive := job.Profile.Timeout + 5*time.Second
	if err := r.api.StartContainer(ctx, name, name, keepAlive, r.limits); err != nil {
		if ctx.Err() != nil {
			return &Outcome{Phase: PhaseBuild, ExitCode: -1}, nil
		}
		return nil, fmt.Errorf("sandbox: start container: %w", err)
	}

	buildArgs, err := job.Profile.BuildArgs(job.Entry)
	if err != nil {
		return nil, err
	}
	if buildArgs != nil {
		out, err := r.exec(ctx, name, buildArgs, PhaseBuild)
		if err != nil || out.ExitCode != 0 {
			return out, err
		}
	}

	runArgs, err := job.Profile.RunArgs(job.Entry)
	if err != nil {
		return nil, err
	}
	return r.exec(ctx, name, runArgs, PhaseRun)
}

func (r *DockerRunner) exec(ctx context.Context, name string, argv []string, phase Phase) (*Outcome, error) {
	out, err := r.api.Exec(ctx, name, argv)
	if err != nil {
		if ctx.Err() != nil {
			return &Outcome{Phase: phase, ExitCode: -1}, nil
		}
		return nil, fmt.Errorf("sandbox: %s: %w", phase, err)
	}
	out.Phase = phase
	return out, nil
}

// teardown removes the container and image by name with a fresh context so
// it still runs after the execution deadline fired.
func (r *DockerRunner) teardown(parent context.Context, executionID, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), teardownTimeout)
	defer cancel()

	if err := r.api.RemoveContainer(ctx, name); err != nil {
		r.logger.Warn("Failed to remove sandbox container",
			zap.String("execution_id", executionID),
			zap.String("container", name),
			zap.Error(err),
		)
	}
	if err := r.api.RemoveImage(ctx, name); err != nil {
		r.logger.Warn("Failed to remove sandbox image",
			zap.String("execution_id", executionID),
			zap.String("image", name),
			zap.Error(err),
		)
	}
}

// sandboxContext tars and gzips the workspace together with the generated
// Dockerfile. The daemon detects the compression itself.
func sandboxContext(dir, baseImage string) (io.Reader, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	dockerfile := fmt.Sprintf("FROM %s\nWORKDIR %s\nCOPY . .\n", baseImage, sandboxWorkdir)
	if err := writeTarFile(tw, sandboxDockerfile, []byte(dockerfile), 0o644); err != nil {
		return nil, err
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir || d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return writeTarFile(tw, filepath.ToSlash(rel), data, 0o644)
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox: tar workspace: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("sandbox: close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("sandbox: close gzip: %w", err)
	}
	return &buf, nil
}

func writeTarFile(tw *tar.Writer, name string, data []byte, mode int64) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    mode,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("sandbox: tar header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("sandbox: tar write %s: %w", name, err)
	}
	return nil
}

// DockerAPI implements ContainerAPI over the Docker Engine SDK.
type DockerAPI struct {
	cli *client.Client
}

// NewDockerAPI connects to the daemon configured by the DOCKER_* environment.
func NewDockerAPI() (*DockerAPI, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: new client: %w", err)
	}
	return &DockerAPI{cli: cli}, nil
}

// Ping checks the daemon is reachable.
func (d *DockerAPI) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

// Close releases the client's transport.
func (d *DockerAPI) Close() error {
	return d.cli.Close()
}

func (d *DockerAPI) BuildImage(ctx context.Context, tag string, buildContext io.Reader) error {
	resp, err := d.cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{tag},
		Dockerfile:  sandboxDockerfile,
		Remove:      true,
		ForceRemove: true,
		NetworkMode: "none",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The stream reports build failures as messages, not as an HTTP error.
	return jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil)
}

func (d *DockerAPI) StartContainer(ctx context.Context, name, img string, keepAlive time.Duration, limits Limits) error {
	cfg := &container.Config{
		Image:           img,
		Cmd:             []string{"sleep", strconv.Itoa(int(keepAlive.Seconds()) + 1)},
		WorkingDir:      sandboxWorkdir,
		NetworkDisabled: true,
	}
	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:   limits.MemoryMB * 1024 * 1024,
			NanoCPUs: limits.NanoCPUs,
		},
	}
	if limits.PidsLimit > 0 {
		pids := limits.PidsLimit
		hostCfg.Resources.PidsLimit = &pids
	}

	created, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return err
	}
	return d.cli.ContainerStart(ctx, created.ID, container.StartOptions{})
}

func (d *DockerAPI) Exec(ctx context.Context, name string, argv []string) (*Outcome, error) {
	ex, err := d.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          argv,
		WorkingDir:   sandboxWorkdir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, err
	}
	hj, err := d.cli.ContainerExecAttach(ctx, ex.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, err
	}
	defer hj.Close()

	stdout, stderr := newLimitedBuffer(), newLimitedBuffer()
	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, hj.Reader)
		copied <- err
	}()

	select {
	case err := <-copied:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		// The hijacked stream ignores ctx; closing it unblocks the copy.
		hj.Close()
		<-copied
		return nil, ctx.Err()
	}

	insp, err := d.cli.ContainerExecInspect(ctx, ex.ID)
	if err != nil {
		return nil, err
	}
	return &Outcome{ExitCode: insp.ExitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (d *DockerAPI) RemoveContainer(ctx context.Context, name string) error {
	err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && client.IsErrNotFound(err) {
		return nil
	}
	return err
}

func (d *DockerAPI) RemoveImage(ctx context.Context, tag string) error {
	_, err := d.cli.ImageRemove(ctx, tag, image.RemoveOptions{Force: true, PruneChildren: true})
	if err != nil && client.IsErrNotFound(err) {
		return nil
	}
	return err
}

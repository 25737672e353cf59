package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// waitDelay bounds how long Wait drains pipes after the process group is killed.
const waitDelay = 2 * time.Second

// ProcessRunner runs jobs as local child processes inside the workspace.
// Each command gets its own process group so the whole tree can be killed.
type ProcessRunner struct {
	logger *zap.Logger
}

// NewProcessRunner creates a local process runner.
func NewProcessRunner(logger *zap.Logger) *ProcessRunner {
	return &ProcessRunner{logger: logger}
}

var _ Runner = (*ProcessRunner)(nil)

func (r *ProcessRunner) Run(ctx context.Context, job *Job) (*Outcome, error) {
	buildArgs, err := job.Profile.BuildArgs(job.Entry)
	if err != nil {
		return nil, err
	}
	if buildArgs != nil {
		out, err := r.exec(ctx, job, buildArgs)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		out.Phase = PhaseBuild
		if out.ExitCode != 0 || ctx.Err() != nil {
			return out, nil
		}
	}

	runArgs, err := job.Profile.RunArgs(job.Entry)
	if err != nil {
		return nil, err
	}
	out, err := r.exec(ctx, job, runArgs)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	out.Phase = PhaseRun
	return out, nil
}

func (r *ProcessRunner) exec(ctx context.Context, job *Job, args []string) (*Outcome, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = job.Workspace.Dir

	// Set up process group for clean termination
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	stdout, stderr := newLimitedBuffer(), newLimitedBuffer()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	startTime := time.Now()
	err := cmd.Run()
	elapsed := time.Since(startTime)

	// Reap anything the program left behind in its group.
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	r.logger.Debug("Process finished",
		zap.String("execution_id", job.ID),
		zap.Strings("argv", args),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)

	out := &Outcome{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode == 0 {
			out.ExitCode = -1
		}
		return out, nil
	}
	if ctx.Err() != nil {
		out.ExitCode = -1
		return out, nil
	}
	return nil, err
}

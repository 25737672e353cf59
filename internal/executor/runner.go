package executor

import (
	"bytes"
	"context"

	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/workspace"
)

const (
	// maxOutputBytes caps stdout/stderr to prevent memory exhaustion.
	maxOutputBytes = 64 * 1024 // 64 KB

	// outputTruncatedMsg is appended when output exceeds the limit.
	outputTruncatedMsg = "\n... output truncated (64 KB limit) ..."
)

// Phase is the step a runner stopped in.
type Phase string

const (
	PhaseBuild Phase = "build"
	PhaseRun   Phase = "run"
)

// Job is everything a runner needs to build and run one materialized workspace.
type Job struct {
	ID        string
	Profile   *profile.Profile
	Entry     profile.Entry
	Workspace *workspace.Workspace
}

// Outcome is what the runner observed. A non-zero ExitCode in PhaseBuild is a
// compile failure; in PhaseRun a runtime failure.
type Outcome struct {
	Phase    Phase
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner builds and runs a job. The context carries the execution deadline;
// runners must stop everything they started once it expires. A returned error
// means the infrastructure failed, not the user's program.
type Runner interface {
	Run(ctx context.Context, job *Job) (*Outcome, error)
}

// limitedBuffer is a bytes.Buffer that stops accepting writes after a limit.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer() *limitedBuffer {
	return &limitedBuffer{limit: maxOutputBytes}
}

func (lb *limitedBuffer) Write(p []byte) (n int, err error) {
	if lb.truncated {
		return len(p), nil // discard silently
	}

	remaining := lb.limit - lb.buf.Len()
	if remaining <= 0 {
		lb.truncated = true
		return len(p), nil
	}

	if len(p) > remaining {
		lb.truncated = true
		lb.buf.Write(p[:remaining])
		return len(p), nil
	}

	return lb.buf.Write(p)
}

// String returns the captured output with a notice if it was cut off.
func (lb *limitedBuffer) String() string {
	if lb.truncated {
		return lb.buf.String() + outputTruncatedMsg
	}
	return lb.buf.String()
}

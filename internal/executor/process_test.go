package executor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/workspace"
)

func skipIfNoShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH, skipping process runner test")
	}
}

func newShellJob(t *testing.T, build, run string) *Job {
	t.Helper()
	skipIfNoShell(t)
	m, err := workspace.NewManager(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ws, err := m.Create("proc")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Materialize("main.sh", "echo from-file", nil); err != nil {
		t.Fatal(err)
	}
	prof := &profile.Profile{BuildCommand: build, RunCommand: run}
	return &Job{
		ID:        "proc",
		Profile:   prof,
		Entry:     profile.Entry{FileName: "main.sh", Identifier: "main"},
		Workspace: ws,
	}
}

func TestProcessRunner_RunsInWorkspace(t *testing.T) {
	job := newShellJob(t, "", "sh {file}")

	out, err := NewProcessRunner(zap.NewNop()).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Phase != PhaseRun || out.ExitCode != 0 || strings.TrimSpace(out.Stdout) != "from-file" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestProcessRunner_ExitCodeAndStderr(t *testing.T) {
	job := newShellJob(t, "", `sh -c "echo boom >&2; exit 3"`)

	out, err := NewProcessRunner(zap.NewNop()).Run(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if out.ExitCode != 3 || strings.TrimSpace(out.Stderr) != "boom" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestProcessRunner_BuildFailureSkipsRun(t *testing.T) {
	job := newShellJob(t, `sh -c "echo bad syntax >&2; exit 1"`, `sh -c "echo ran"`)

	out, err := NewProcessRunner(zap.NewNop()).Run(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if out.Phase != PhaseBuild || out.ExitCode != 1 || strings.Contains(out.Stdout, "ran") {
		t.Errorf("outcome = %+v", out)
	}
}

func TestProcessRunner_KillsProcessGroupOnDeadline(t *testing.T) {
	// The child sleep keeps the pipes open; only a group kill ends it promptly.
	job := newShellJob(t, "", `sh -c "sleep 30 & sleep 30"`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	out, err := NewProcessRunner(zap.NewNop()).Run(ctx, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode == 0 {
		t.Errorf("expected non-zero exit after kill, got %+v", out)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("process group not killed promptly: %v", elapsed)
	}
}

func TestProcessRunner_MissingBinary(t *testing.T) {
	job := newShellJob(t, "", "definitely-not-a-real-binary-xyz {file}")

	if _, err := NewProcessRunner(zap.NewNop()).Run(context.Background(), job); err == nil {
		t.Error("expected infrastructure error for a missing interpreter")
	}
}

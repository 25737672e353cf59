// Package executor turns one execution request into a classified result:
// materialize the source tree, build and run it under the language's time
// budget, and always clean up what was created.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/metrics"
	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/workspace"
)

// TimeoutMessage is reported to callers when the time budget is exceeded.
const TimeoutMessage = "Execution timed out"

// Engine executes requests against the profile registry.
type Engine struct {
	registry   *profile.Registry
	workspaces *workspace.Manager
	local      Runner
	sandbox    Runner
	// isolateInterpreted routes interpreted languages through the sandbox too.
	isolateInterpreted bool
	logger             *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIsolatedInterpreters runs interpreted languages in the sandbox instead of
// as local processes.
func WithIsolatedInterpreters(enabled bool) EngineOption {
	return func(e *Engine) { e.isolateInterpreted = enabled }
}

// NewEngine creates an execution engine. sandbox may be nil when no container
// engine is available; compiled languages then fail with INTERNAL_ERROR.
func NewEngine(
	registry *profile.Registry,
	workspaces *workspace.Manager,
	local, sandbox Runner,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		registry:   registry,
		workspaces: workspaces,
		local:      local,
		sandbox:    sandbox,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one request to a terminal status. Errors are returned only for
// problems with the request itself (empty source, unknown language, bad paths);
// everything else is reported through the result status.
func (e *Engine) Execute(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
	if req.MainSource == "" {
		return nil, domain.ErrEmptySourceCode
	}
	prof, ok := e.registry.Lookup(req.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidLanguage, req.Language)
	}

	log := e.logger.With(
		zap.String("execution_id", req.ID.String()),
		zap.String("language", string(req.Language)),
	)

	entry := prof.ResolveEntry(req.MainFileName, req.MainSource)
	ws, err := e.workspaces.Create(req.ID.String())
	if err != nil {
		return e.internalError(log, req, err), nil
	}
	defer e.workspaces.Destroy(ws)

	if err := ws.Materialize(entry.FileName, req.MainSource, req.AuxFiles); err != nil {
		if errors.Is(err, domain.ErrInvalidPath) {
			return nil, err
		}
		return e.internalError(log, req, err), nil
	}

	runner := e.local
	if prof.Compiled || e.isolateInterpreted {
		runner = e.sandbox
	}
	if runner == nil {
		return e.internalError(log, req, errors.New("no sandbox available for compiled language")), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, prof.Timeout)
	defer cancel()

	if prof.Compiled {
		log.Debug("Execution state", zap.String("status", string(domain.StatusCompiling)))
	} else {
		log.Debug("Execution state", zap.String("status", string(domain.StatusRunning)))
	}

	startTime := time.Now()
	out, err := runner.Run(runCtx, &Job{
		ID:        req.ID.String(),
		Profile:   prof,
		Entry:     entry,
		Workspace: ws,
	})
	elapsed := time.Since(startTime)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Info("Execution timed out", zap.Duration("budget", prof.Timeout))
		result := &domain.ExecutionResult{
			ExecutionID: req.ID,
			Status:      domain.StatusTimeout,
			ExitCode:    -1,
			TimeUsedMs:  int(elapsed.Milliseconds()),
		}
		if out != nil {
			result.Stdout, result.Stderr = out.Stdout, out.Stderr
		}
		return result, nil
	}
	if err != nil {
		return e.internalError(log, req, err), nil
	}

	result := &domain.ExecutionResult{
		ExecutionID: req.ID,
		Stdout:      out.Stdout,
		Stderr:      out.Stderr,
		ExitCode:    out.ExitCode,
		TimeUsedMs:  int(elapsed.Milliseconds()),
	}
	switch {
	case out.ExitCode == 0:
		result.Status = domain.StatusSuccess
	case out.Phase == PhaseBuild:
		result.Status = domain.StatusCompilationError
	default:
		result.Status = domain.StatusRuntimeError
	}

	log.Info("Execution finished",
		zap.String("status", string(result.Status)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (e *Engine) internalError(log *zap.Logger, req *domain.ExecutionRequest, err error) *domain.ExecutionResult {
	metrics.SandboxFailures.Inc()
	log.Error("Execution infrastructure failure", zap.Error(err))
	return &domain.ExecutionResult{
		ExecutionID: req.ID,
		Status:      domain.StatusInternalError,
		ExitCode:    -1,
	}
}

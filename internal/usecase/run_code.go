package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/metrics"
	"github.com/YashHaritash/btp-backend/internal/pool"
	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

const maxSourceTreeSize = 1 << 20 // 1 MB across the main file and every aux file

// Executor runs one execution request to a terminal status.
type Executor interface {
	Execute(ctx context.Context, req *domain.ExecutionRequest) (*domain.ExecutionResult, error)
}

// Admitter bounds how many executions run at once.
type Admitter interface {
	Do(ctx context.Context, task pool.Task) error
}

// RunCodeUsecase validates a run request, waits for a worker slot and executes it.
type RunCodeUsecase struct {
	registry *profile.Registry
	admitter Admitter
	executor Executor
	runs     repository.RunRepository
	logger   *zap.Logger
}

// NewRunCodeUsecase creates a new RunCodeUsecase. runs may be nil, in which
// case no run history is kept.
func NewRunCodeUsecase(registry *profile.Registry, admitter Admitter, executor Executor, runs repository.RunRepository, logger *zap.Logger) *RunCodeUsecase {
	return &RunCodeUsecase{
		registry: registry,
		admitter: admitter,
		executor: executor,
		runs:     runs,
		logger:   logger,
	}
}

// Execute runs req as lang and returns the classified result.
func (uc *RunCodeUsecase) Execute(ctx context.Context, lang domain.Language, req *domain.RunRequest) (*domain.ExecutionResult, error) {
	if _, ok := uc.registry.Lookup(lang); !ok {
		return nil, domain.ErrInvalidLanguage
	}
	if req.Code == "" {
		return nil, domain.ErrEmptySourceCode
	}
	size := len(req.Code)
	for name, content := range req.AllFiles {
		size += len(name) + len(content)
	}
	if size > maxSourceTreeSize {
		return nil, domain.ErrPayloadTooLarge
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}
	execReq := &domain.ExecutionRequest{
		ID:           id,
		Language:     lang,
		MainFileName: req.FileName,
		MainSource:   req.Code,
		AuxFiles:     req.AllFiles,
	}

	var (
		result  *domain.ExecutionResult
		execErr error
	)
	startTime := time.Now()
	if err := uc.admitter.Do(ctx, func(ctx context.Context) {
		result, execErr = uc.executor.Execute(ctx, execReq)
	}); err != nil {
		if errors.Is(err, domain.ErrServerBusy) {
			uc.logger.Warn("Execution rejected, pool saturated", zap.String("language", string(lang)))
		}
		return nil, err
	}
	if execErr != nil {
		return nil, execErr
	}
	if result == nil {
		// The task panicked; the pool already logged it.
		result = &domain.ExecutionResult{ExecutionID: id, Status: domain.StatusInternalError, ExitCode: -1}
	}

	metrics.ExecutionsTotal.WithLabelValues(string(lang), string(result.Status)).Inc()
	metrics.ExecutionDuration.WithLabelValues(string(lang)).Observe(time.Since(startTime).Seconds())

	uc.record(ctx, execReq, result)
	return result, nil
}

func (uc *RunCodeUsecase) record(ctx context.Context, req *domain.ExecutionRequest, result *domain.ExecutionResult) {
	if uc.runs == nil {
		return
	}
	run := &domain.RunRecord{
		ExecutionID: result.ExecutionID,
		Language:    req.Language,
		FileName:    req.MainFileName,
		SourceCode:  req.MainSource,
		Status:      result.Status,
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
		ExitCode:    result.ExitCode,
		TimeUsedMs:  result.TimeUsedMs,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		uc.logger.Warn("Failed to record run history",
			zap.String("execution_id", result.ExecutionID.String()),
			zap.Error(err),
		)
	}
}

// GetRun returns a recorded run by its execution ID.
func (uc *RunCodeUsecase) GetRun(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	if uc.runs == nil {
		return nil, domain.ErrDatabaseUnavailable
	}
	run, err := uc.runs.GetByID(ctx, id)
	if err != nil {
		uc.logger.Debug("Run not found", zap.String("execution_id", id.String()), zap.Error(err))
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

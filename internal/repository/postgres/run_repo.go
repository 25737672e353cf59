package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure pgRunRepo implements repository.RunRepository.
var _ repository.RunRepository = (*pgRunRepo)(nil)

type pgRunRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRunRepository creates a new PostgreSQL-backed run history.
func NewPostgresRunRepository(pool *pgxpool.Pool) repository.RunRepository {
	return &pgRunRepo{pool: pool}
}

func (r *pgRunRepo) Record(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO execution_runs (execution_id, language, file_name, source_code, status,
		                            stdout, stderr, exit_code, time_used_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, query,
		run.ExecutionID, run.Language, run.FileName, run.SourceCode, run.Status,
		run.Stdout, run.Stderr, run.ExitCode, run.TimeUsedMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record run: %w", err)
	}
	return nil
}

func (r *pgRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	query := `
		SELECT execution_id, language, file_name, source_code, status,
		       stdout, stderr, exit_code, time_used_ms, created_at
		FROM execution_runs
		WHERE execution_id = $1`

	run := &domain.RunRecord{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ExecutionID, &run.Language, &run.FileName, &run.SourceCode, &run.Status,
		&run.Stdout, &run.Stderr, &run.ExitCode, &run.TimeUsedMs, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: run %s: %w", id, pgx.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get run by id: %w", err)
	}
	return run, nil
}

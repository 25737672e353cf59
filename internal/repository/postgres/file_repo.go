package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure pgFileRepo implements repository.FileRepository.
var _ repository.FileRepository = (*pgFileRepo)(nil)

type pgFileRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresFileRepository creates a new PostgreSQL-backed file repository.
func NewPostgresFileRepository(pool *pgxpool.Pool) repository.FileRepository {
	return &pgFileRepo{pool: pool}
}

const fileColumns = `session_id, name, content, language, created_by, last_modified_by, created_at, updated_at`

func scanFile(row pgx.Row) (*domain.File, error) {
	f := &domain.File{}
	err := row.Scan(&f.SessionID, &f.Name, &f.Content, &f.Language,
		&f.CreatedBy, &f.LastModifiedBy, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	return f, err
}

func (r *pgFileRepo) List(ctx context.Context, sessionID string) ([]*domain.File, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM session_files WHERE session_id = $1 ORDER BY name`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list files: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list files: %w", err)
	}
	return files, nil
}

func (r *pgFileRepo) Get(ctx context.Context, sessionID, name string) (*domain.File, error) {
	f, err := scanFile(r.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM session_files WHERE session_id = $1 AND name = $2`,
		sessionID, name,
	))
	if err != nil && !errors.Is(err, domain.ErrFileNotFound) {
		return nil, fmt.Errorf("postgres: get file: %w", err)
	}
	return f, err
}

func (r *pgFileRepo) Create(ctx context.Context, f *domain.File) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $6)`,
		f.SessionID, f.Name, f.Content, f.Language, f.CreatedBy, now,
	)
	if isUniqueViolation(err) {
		return domain.ErrFileExists
	}
	if isForeignKeyViolation(err) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: create file: %w", err)
	}
	f.LastModifiedBy = f.CreatedBy
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

func (r *pgFileRepo) UpdateContent(ctx context.Context, sessionID, name, content, userID string) (*domain.File, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `
		UPDATE session_files SET content = $3, last_modified_by = $4, updated_at = $5
		WHERE session_id = $1 AND name = $2
		RETURNING `+fileColumns,
		sessionID, name, content, userID, time.Now().UTC(),
	))
	if err != nil && !errors.Is(err, domain.ErrFileNotFound) {
		return nil, fmt.Errorf("postgres: update file: %w", err)
	}
	return f, err
}

func (r *pgFileRepo) Rename(ctx context.Context, sessionID, oldName, newName, userID string) (*domain.File, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `
		UPDATE session_files SET name = $3, language = $4, last_modified_by = $5, updated_at = $6
		WHERE session_id = $1 AND name = $2
		RETURNING `+fileColumns,
		sessionID, oldName, newName, domain.LanguageForFile(newName), userID, time.Now().UTC(),
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrFileExists
	}
	if err != nil && !errors.Is(err, domain.ErrFileNotFound) {
		return nil, fmt.Errorf("postgres: rename file: %w", err)
	}
	return f, err
}

func (r *pgFileRepo) Delete(ctx context.Context, sessionID, name string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM session_files WHERE session_id = $1 AND name = $2`,
		sessionID, name,
	)
	if err != nil {
		return fmt.Errorf("postgres: delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

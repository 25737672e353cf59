package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure pgCodeRepo implements repository.CodeRepository.
var _ repository.CodeRepository = (*pgCodeRepo)(nil)

type pgCodeRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresCodeRepository creates a new PostgreSQL-backed code history.
func NewPostgresCodeRepository(pool *pgxpool.Pool) repository.CodeRepository {
	return &pgCodeRepo{pool: pool}
}

func (r *pgCodeRepo) Get(ctx context.Context, sessionID string) (*domain.CodeDocument, error) {
	return r.load(ctx, r.pool, sessionID)
}

// Save appends code to the history; the newest version is the current code.
func (r *pgCodeRepo) Save(ctx context.Context, sessionID, code string) (*domain.CodeDocument, error) {
	var doc *domain.CodeDocument
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO code_versions (session_id, code, created_at) VALUES ($1, $2, $3)`,
			sessionID, code, time.Now().UTC(),
		); err != nil {
			return err
		}
		var err error
		doc, err = r.load(ctx, tx, sessionID)
		return err
	})
	if isForeignKeyViolation(err) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: save code: %w", err)
	}
	return doc, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// load returns the document with its history oldest first. A session that
// never saved code yields an empty document.
func (r *pgCodeRepo) load(ctx context.Context, q querier, sessionID string) (*domain.CodeDocument, error) {
	doc := &domain.CodeDocument{SessionID: sessionID, VersionHistory: []domain.CodeVersion{}}

	rows, err := q.Query(ctx, `
		SELECT code, created_at FROM code_versions
		WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load code history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.CodeVersion
		if err := rows.Scan(&v.Code, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan code version: %w", err)
		}
		doc.VersionHistory = append(doc.VersionHistory, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load code history: %w", err)
	}
	if n := len(doc.VersionHistory); n > 0 {
		doc.Code = doc.VersionHistory[n-1].Code
	}
	return doc, nil
}

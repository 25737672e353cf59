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

// Ensure pgSessionRepo implements repository.SessionRepository.
var _ repository.SessionRepository = (*pgSessionRepo)(nil)

type pgSessionRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL-backed session repository.
func NewPostgresSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &pgSessionRepo{pool: pool}
}

func (r *pgSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	now := time.Now().UTC()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sessions (session_id, creator, created_at) VALUES ($1, $2, $3)`,
			s.SessionID, s.Creator, now,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO session_participants (session_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			s.SessionID, s.Creator, now,
		)
		return err
	})
	if isUniqueViolation(err) {
		return domain.ErrSessionExists
	}
	if err != nil {
		return fmt.Errorf("postgres: create session: %w", err)
	}
	s.CreatedAt = now
	s.Participants = []string{s.Creator}
	return nil
}

func (r *pgSessionRepo) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT s.session_id, s.creator, s.created_at,
		       COALESCE(array_agg(p.user_id ORDER BY p.joined_at) FILTER (WHERE p.user_id IS NOT NULL), '{}')
		FROM sessions s
		LEFT JOIN session_participants p ON p.session_id = s.session_id
		WHERE s.session_id = $1
		GROUP BY s.session_id`

	s := &domain.Session{}
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&s.SessionID, &s.Creator, &s.CreatedAt, &s.Participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session: %w", err)
	}
	return s, nil
}

func (r *pgSessionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := `
		SELECT s.session_id, s.creator, s.created_at,
		       array_agg(p.user_id ORDER BY p.joined_at)
		FROM sessions s
		JOIN session_participants p ON p.session_id = s.session_id
		WHERE s.session_id IN (SELECT session_id FROM session_participants WHERE user_id = $1)
		GROUP BY s.session_id
		ORDER BY s.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s := &domain.Session{}
		if err := rows.Scan(&s.SessionID, &s.Creator, &s.CreatedAt, &s.Participants); err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	return sessions, nil
}

func (r *pgSessionRepo) AddParticipant(ctx context.Context, sessionID, userID string) error {
	query := `
		INSERT INTO session_participants (session_id, user_id, joined_at)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM sessions WHERE session_id = $1)
		ON CONFLICT (session_id, user_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, sessionID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: add participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already a participant or the session does not exist.
		if _, err := r.GetByID(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgSessionRepo) RemoveParticipant(ctx context.Context, sessionID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM session_participants WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: remove participant: %w", err)
	}
	return nil
}

func (r *pgSessionRepo) Delete(ctx context.Context, sessionID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("postgres: delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

// RunRepository stores the history of code executions.
type RunRepository interface {
	Record(ctx context.Context, run *domain.RunRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error)
}

// SessionRepository persists collaboration sessions and their participants.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	AddParticipant(ctx context.Context, sessionID, userID string) error
	RemoveParticipant(ctx context.Context, sessionID, userID string) error
	Delete(ctx context.Context, sessionID string) error
}

// FileRepository persists the files of a session. Names are unique per session.
type FileRepository interface {
	List(ctx context.Context, sessionID string) ([]*domain.File, error)
	Get(ctx context.Context, sessionID, name string) (*domain.File, error)
	Create(ctx context.Context, f *domain.File) error
	UpdateContent(ctx context.Context, sessionID, name, content, userID string) (*domain.File, error)
	Rename(ctx context.Context, sessionID, oldName, newName, userID string) (*domain.File, error)
	Delete(ctx context.Context, sessionID, name string) error
}

// CodeRepository persists a session's single code buffer with its history.
type CodeRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.CodeDocument, error)
	Save(ctx context.Context, sessionID, code string) (*domain.CodeDocument, error)
}

package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

const (
	sessionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	sessionIDLength   = 5
	sessionIDAttempts = 5
)

// Notifier relays persisted changes into a session's live room.
// A nil sender means the change did not come from a connected client.
type Notifier interface {
	CreateFile(ctx context.Context, from realtime.Client, e realtime.FileCreated)
	ChangeFile(ctx context.Context, from realtime.Client, e realtime.CodeEdit)
	DeleteFile(ctx context.Context, from realtime.Client, e realtime.FileDeleted)
	RenameFile(ctx context.Context, from realtime.Client, e realtime.FileRenamed)
	DropSession(ctx context.Context, sessionID string) error
}

// SessionUsecase manages persisted sessions and their participants.
type SessionUsecase struct {
	sessions repository.SessionRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewSessionUsecase creates a new SessionUsecase.
func NewSessionUsecase(sessions repository.SessionRepository, notifier Notifier, logger *zap.Logger) *SessionUsecase {
	return &SessionUsecase{sessions: sessions, notifier: notifier, logger: logger}
}

// Create opens a session owned by userID under a fresh short ID.
func (uc *SessionUsecase) Create(ctx context.Context, userID string) (*domain.Session, error) {
	for attempt := 0; attempt < sessionIDAttempts; attempt++ {
		id, err := newSessionID()
		if err != nil {
			return nil, err
		}
		s := &domain.Session{SessionID: id, Creator: userID}
		err = uc.sessions.Create(ctx, s)
		if errors.Is(err, domain.ErrSessionExists) {
			continue
		}
		if err != nil {
			uc.logger.Error("Failed to create session", zap.String("user_id", userID), zap.Error(err))
			return nil, fmt.Errorf("create session: %w", err)
		}
		uc.logger.Info("Session created", zap.String("session_id", id), zap.String("user_id", userID))
		return s, nil
	}
	return nil, fmt.Errorf("create session: %w", domain.ErrSessionExists)
}

// Join adds userID to the session's participants and returns the session.
func (uc *SessionUsecase) Join(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	if err := uc.sessions.AddParticipant(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return uc.sessions.GetByID(ctx, sessionID)
}

// Details returns the session.
func (uc *SessionUsecase) Details(ctx context.Context, sessionID string) (*domain.Session, error) {
	return uc.sessions.GetByID(ctx, sessionID)
}

// ListByUser returns the sessions userID takes part in.
func (uc *SessionUsecase) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := uc.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return sessions, nil
}

// Leave removes userID from the session's participants.
func (uc *SessionUsecase) Leave(ctx context.Context, sessionID, userID string) error {
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return err
	}
	return uc.sessions.RemoveParticipant(ctx, sessionID, userID)
}

// Delete removes the session. Only its creator may delete it. The live state
// is dropped as well so a later join does not replay stale files.
func (uc *SessionUsecase) Delete(ctx context.Context, sessionID, userID string) error {
	s, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Creator != userID {
		return domain.ErrForbidden
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := uc.notifier.DropSession(ctx, sessionID); err != nil {
		uc.logger.Warn("Failed to drop live session state", zap.String("session_id", sessionID), zap.Error(err))
	}
	uc.logger.Info("Session deleted", zap.String("session_id", sessionID), zap.String("user_id", userID))
	return nil
}

func newSessionID() (string, error) {
	limit := big.NewInt(int64(len(sessionIDAlphabet)))
	b := make([]byte, sessionIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		b[i] = sessionIDAlphabet[n.Int64()]
	}
	return string(b), nil
}

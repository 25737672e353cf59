package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// CodeUsecase manages a session's single code buffer and its version history.
type CodeUsecase struct {
	code     repository.CodeRepository
	notifier CodeNotifier
	logger   *zap.Logger
}

// CodeNotifier relays a new legacy buffer to the live room.
type CodeNotifier interface {
	Edit(ctx context.Context, from realtime.Client, e realtime.CodeEdit)
}

// NewCodeUsecase creates a new CodeUsecase. notifier may be nil.
func NewCodeUsecase(code repository.CodeRepository, notifier CodeNotifier, logger *zap.Logger) *CodeUsecase {
	return &CodeUsecase{code: code, notifier: notifier, logger: logger}
}

// Get returns the session's code and history.
func (uc *CodeUsecase) Get(ctx context.Context, sessionID string) (*domain.CodeDocument, error) {
	return uc.code.Get(ctx, sessionID)
}

// Update stores code as the newest version.
func (uc *CodeUsecase) Update(ctx context.Context, sessionID, code, userID string) (*domain.CodeDocument, error) {
	doc, err := uc.code.Save(ctx, sessionID, code)
	if err != nil {
		uc.logger.Error("Failed to save code", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	if uc.notifier != nil {
		uc.notifier.Edit(ctx, nil, realtime.CodeEdit{SessionID: sessionID, Code: code, UserName: userID})
	}
	return doc, nil
}

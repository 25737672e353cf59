package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	"github.com/YashHaritash/btp-backend/internal/repository"
	"github.com/YashHaritash/btp-backend/internal/workspace"
)

// FileUsecase manages the persisted files of a session and keeps the live
// room in step with every change.
type FileUsecase struct {
	sessions repository.SessionRepository
	files    repository.FileRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewFileUsecase creates a new FileUsecase.
func NewFileUsecase(sessions repository.SessionRepository, files repository.FileRepository, notifier Notifier, logger *zap.Logger) *FileUsecase {
	return &FileUsecase{sessions: sessions, files: files, notifier: notifier, logger: logger}
}

func (uc *FileUsecase) ensureSession(ctx context.Context, sessionID string) error {
	_, err := uc.sessions.GetByID(ctx, sessionID)
	return err
}

// List returns every file of the session, ordered by name.
func (uc *FileUsecase) List(ctx context.Context, sessionID string) ([]*domain.File, error) {
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	files, err := uc.files.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []*domain.File{}
	}
	return files, nil
}

// Get returns one file.
func (uc *FileUsecase) Get(ctx context.Context, sessionID, name string) (*domain.File, error) {
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.files.Get(ctx, sessionID, name)
}

// Create adds a file. An empty language is inferred from the extension.
func (uc *FileUsecase) Create(ctx context.Context, sessionID, name, content string, lang domain.Language, userID string) (*domain.File, error) {
	if err := workspace.ValidateName(name); err != nil {
		return nil, err
	}
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(lang)) == "" {
		lang = domain.LanguageForFile(name)
	}

	f := &domain.File{
		SessionID: sessionID,
		Name:      name,
		Content:   content,
		Language:  lang,
		CreatedBy: userID,
	}
	if err := uc.files.Create(ctx, f); err != nil {
		return nil, err
	}

	uc.notifier.CreateFile(ctx, nil, realtime.FileCreated{
		SessionID: sessionID, FileName: name, Language: string(lang), UserName: userID,
	})
	uc.notifier.ChangeFile(ctx, nil, realtime.CodeEdit{
		SessionID: sessionID, FileName: name, Content: content, UserName: userID,
	})
	return f, nil
}

// UpdateContent replaces a file's content.
func (uc *FileUsecase) UpdateContent(ctx context.Context, sessionID, name, content, userID string) (*domain.File, error) {
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	f, err := uc.files.UpdateContent(ctx, sessionID, name, content, userID)
	if err != nil {
		return nil, err
	}
	uc.notifier.ChangeFile(ctx, nil, realtime.CodeEdit{
		SessionID: sessionID, FileName: name, Content: content, UserName: userID,
	})
	return f, nil
}

// Rename moves a file to a new name within the session.
func (uc *FileUsecase) Rename(ctx context.Context, sessionID, oldName, newName, userID string) (*domain.File, error) {
	if err := workspace.ValidateName(newName); err != nil {
		return nil, err
	}
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	f, err := uc.files.Rename(ctx, sessionID, oldName, newName, userID)
	if err != nil {
		return nil, err
	}
	uc.notifier.RenameFile(ctx, nil, realtime.FileRenamed{
		SessionID: sessionID, OldFileName: oldName, NewFileName: newName, UserName: userID,
	})
	return f, nil
}

// Delete removes a file.
func (uc *FileUsecase) Delete(ctx context.Context, sessionID, name, userID string) error {
	if err := uc.ensureSession(ctx, sessionID); err != nil {
		return err
	}
	if err := uc.files.Delete(ctx, sessionID, name); err != nil {
		return err
	}
	uc.notifier.DeleteFile(ctx, nil, realtime.FileDeleted{
		SessionID: sessionID, FileName: name, UserName: userID,
	})
	uc.logger.Debug("File deleted", zap.String("session_id", sessionID), zap.String("file_name", name))
	return nil
}

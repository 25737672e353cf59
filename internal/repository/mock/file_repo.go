package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure MockFileRepository implements repository.FileRepository.
var _ repository.FileRepository = (*MockFileRepository)(nil)

type fileKey struct{ session, name string }

// MockFileRepository is an in-memory mock of the file repository.
type MockFileRepository struct {
	mu    sync.RWMutex
	files map[fileKey]*domain.File

	// Hook functions for injecting errors
	CreateFunc func(ctx context.Context, f *domain.File) error
}

// NewMockFileRepository creates a new mock file repository.
func NewMockFileRepository() *MockFileRepository {
	return &MockFileRepository{files: make(map[fileKey]*domain.File)}
}

func (m *MockFileRepository) List(ctx context.Context, sessionID string) ([]*domain.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.File
	for k, f := range m.files {
		if k.session == sessionID {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockFileRepository) Get(ctx context.Context, sessionID, name string) (*domain.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[fileKey{sessionID, name}]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockFileRepository) Create(ctx context.Context, f *domain.File) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fileKey{f.SessionID, f.Name}
	if _, ok := m.files[k]; ok {
		return domain.ErrFileExists
	}
	now := time.Now().UTC()
	f.LastModifiedBy = f.CreatedBy
	f.CreatedAt, f.UpdatedAt = now, now
	cp := *f
	m.files[k] = &cp
	return nil
}

func (m *MockFileRepository) UpdateContent(ctx context.Context, sessionID, name, content, userID string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileKey{sessionID, name}]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	f.Content = content
	f.LastModifiedBy = userID
	f.UpdatedAt = time.Now().UTC()
	cp := *f
	return &cp, nil
}

func (m *MockFileRepository) Rename(ctx context.Context, sessionID, oldName, newName, userID string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileKey{sessionID, oldName}]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	if _, taken := m.files[fileKey{sessionID, newName}]; taken {
		return nil, domain.ErrFileExists
	}
	delete(m.files, fileKey{sessionID, oldName})
	f.Name = newName
	f.Language = domain.LanguageForFile(newName)
	f.LastModifiedBy = userID
	m.files[fileKey{sessionID, newName}] = f
	cp := *f
	return &cp, nil
}

func (m *MockFileRepository) Delete(ctx context.Context, sessionID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fileKey{sessionID, name}
	if _, ok := m.files[k]; !ok {
		return domain.ErrFileNotFound
	}
	delete(m.files, k)
	return nil
}

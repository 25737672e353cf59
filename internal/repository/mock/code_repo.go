package mock

import (
	"context"
	"sync"
	"time"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure MockCodeRepository implements repository.CodeRepository.
var _ repository.CodeRepository = (*MockCodeRepository)(nil)

// MockCodeRepository is an in-memory mock of the code history.
type MockCodeRepository struct {
	mu   sync.Mutex
	docs map[string]*domain.CodeDocument
}

// NewMockCodeRepository creates a new mock code repository.
func NewMockCodeRepository() *MockCodeRepository {
	return &MockCodeRepository{docs: make(map[string]*domain.CodeDocument)}
}

func (m *MockCodeRepository) Get(ctx context.Context, sessionID string) (*domain.CodeDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[sessionID]
	if !ok {
		return &domain.CodeDocument{SessionID: sessionID, VersionHistory: []domain.CodeVersion{}}, nil
	}
	cp := *doc
	cp.VersionHistory = append([]domain.CodeVersion(nil), doc.VersionHistory...)
	return &cp, nil
}

func (m *MockCodeRepository) Save(ctx context.Context, sessionID, code string) (*domain.CodeDocument, error) {
	m.mu.Lock()
	doc, ok := m.docs[sessionID]
	if !ok {
		doc = &domain.CodeDocument{SessionID: sessionID}
		m.docs[sessionID] = doc
	}
	doc.Code = code
	doc.VersionHistory = append(doc.VersionHistory, domain.CodeVersion{Code: code, Timestamp: time.Now().UTC()})
	m.mu.Unlock()
	return m.Get(ctx, sessionID)
}

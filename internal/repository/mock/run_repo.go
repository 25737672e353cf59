package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure MockRunRepository implements repository.RunRepository.
var _ repository.RunRepository = (*MockRunRepository)(nil)

// MockRunRepository is an in-memory mock of the run history for testing.
type MockRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*domain.RunRecord

	// Hook functions for injecting errors
	RecordFunc  func(ctx context.Context, run *domain.RunRecord) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error)
}

// NewMockRunRepository creates a new mock run repository.
func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{runs: make(map[uuid.UUID]*domain.RunRecord)}
}

func (m *MockRunRepository) Record(ctx context.Context, run *domain.RunRecord) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ExecutionID] = run
	return nil
}

func (m *MockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

// GetAll returns all recorded runs (for test assertions).
func (m *MockRunRepository) GetAll() []*domain.RunRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		result = append(result, r)
	}
	return result
}

package mock

import (
	"context"
	"sync"
	"time"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/repository"
)

// Ensure MockSessionRepository implements repository.SessionRepository.
var _ repository.SessionRepository = (*MockSessionRepository)(nil)

// MockSessionRepository is an in-memory mock of the session repository.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	// Hook functions for injecting errors
	CreateFunc func(ctx context.Context, s *domain.Session) error
	DeleteFunc func(ctx context.Context, sessionID string) error
}

// NewMockSessionRepository creates a new mock session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[string]*domain.Session)}
}

func (m *MockSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; ok {
		return domain.ErrSessionExists
	}
	s.CreatedAt = time.Now().UTC()
	s.Participants = []string{s.Creator}
	cp := *s
	m.sessions[s.SessionID] = &cp
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	cp.Participants = append([]string(nil), s.Participants...)
	return &cp, nil
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Session
	for _, s := range m.sessions {
		for _, p := range s.Participants {
			if p == userID {
				cp := *s
				result = append(result, &cp)
				break
			}
		}
	}
	return result, nil
}

func (m *MockSessionRepository) AddParticipant(ctx context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for _, p := range s.Participants {
		if p == userID {
			return nil
		}
	}
	s.Participants = append(s.Participants, userID)
	return nil
}

func (m *MockSessionRepository) RemoveParticipant(ctx context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	kept := s.Participants[:0]
	for _, p := range s.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	s.Participants = kept
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

// Package session keeps the live, in-flight contents of every collaboration
// session so that late joiners can be brought up to date.
package session

import (
	"context"
	"sync"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

// Store holds the legacy single buffer and the per-file contents of each
// session. Writes are last-write-wins; removing or renaming an absent file is
// a no-op.
type Store interface {
	Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error)
	SetLegacyCode(ctx context.Context, sessionID, code string) error
	PutFile(ctx context.Context, sessionID, fileName, content string) error
	RemoveFile(ctx context.Context, sessionID, fileName string) error
	RenameFile(ctx context.Context, sessionID, oldName, newName string) error
	Drop(ctx context.Context, sessionID string) error
}

type sessionState struct {
	mu         sync.Mutex
	legacy     *string
	files      map[string]string
	hasFileMap bool
}

// MemoryStore is a process-local Store. Each session has its own lock, so
// sessions never contend with each other.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionState)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) get(sessionID string, create bool) *sessionState {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.sessions[sessionID]; ok {
		return st
	}
	st = &sessionState{files: make(map[string]string)}
	s.sessions[sessionID] = st
	return st
}

func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) (domain.Snapshot, error) {
	st := s.get(sessionID, false)
	if st == nil {
		return domain.Snapshot{}, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	snap := domain.Snapshot{Exists: st.hasFileMap}
	if st.legacy != nil {
		code := *st.legacy
		snap.LegacyCode = &code
	}
	if st.hasFileMap {
		snap.Files = make(map[string]string, len(st.files))
		for name, content := range st.files {
			snap.Files[name] = content
		}
	}
	return snap, nil
}

func (s *MemoryStore) SetLegacyCode(_ context.Context, sessionID, code string) error {
	st := s.get(sessionID, true)
	st.mu.Lock()
	st.legacy = &code
	st.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutFile(_ context.Context, sessionID, fileName, content string) error {
	st := s.get(sessionID, true)
	st.mu.Lock()
	st.files[fileName] = content
	st.hasFileMap = true
	st.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveFile(_ context.Context, sessionID, fileName string) error {
	st := s.get(sessionID, false)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	delete(st.files, fileName)
	st.mu.Unlock()
	return nil
}

func (s *MemoryStore) RenameFile(_ context.Context, sessionID, oldName, newName string) error {
	st := s.get(sessionID, false)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	content, ok := st.files[oldName]
	if !ok || oldName == newName {
		return nil
	}
	st.files[newName] = content
	delete(st.files, oldName)
	return nil
}

func (s *MemoryStore) Drop(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/conclave-ai/conclave/internal/errors"
)

// MemoryStore keeps sessions in process memory. It is the default backend
// and the one tests use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
	}
}

func (s *MemoryStore) Save(_ context.Context, session *PersistedSession) error {
	if session == nil || session.ID == "" {
		return errors.NewValidationError("session must have an id")
	}
	// Sessions are stored encoded so callers cannot mutate stored state
	// through retained pointers.
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*PersistedSession, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
	}
	var session PersistedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &session, nil
}

func (s *MemoryStore) List(_ context.Context) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(s.sessions))
	for _, data := range s.sessions {
		var session PersistedSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, errors.Wrap(err, "decode session")
		}
		summaries = append(summaries, session.summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

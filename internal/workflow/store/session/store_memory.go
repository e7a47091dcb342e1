// Package session provides the in-memory session store.
package session

import (
	"context"
	"fmt"
	"sync"

	"careflow/internal/workflow"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a RWMutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]workflow.Session
}

func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]workflow.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, sess workflow.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (workflow.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return workflow.Session{}, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return sess, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]workflow.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]workflow.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

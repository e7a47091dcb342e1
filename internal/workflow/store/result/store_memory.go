// Package result provides the in-memory stage result store.
package result

import (
	"context"
	"fmt"
	"sync"

	"careflow/internal/stage"
	"careflow/internal/workflow"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

type key struct {
	session id.SessionID
	stage   stage.Name
}

// InMemoryStore keeps stage results keyed by (session, stage). Accepted
// results are immutable: a save over one is rejected.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[key]workflow.StageResult
}

func New() *InMemoryStore {
	return &InMemoryStore{results: make(map[key]workflow.StageResult)}
}

func (s *InMemoryStore) Save(_ context.Context, res workflow.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{session: res.SessionID, stage: res.Stage}
	if existing, exists := s.results[k]; exists && existing.Status == workflow.ValidationAccepted {
		return fmt.Errorf("accepted result for stage %s is immutable: %w", res.Stage, sentinel.ErrConflict)
	}
	s.results[k] = res
	return nil
}

func (s *InMemoryStore) FindBySessionAndStage(_ context.Context, sessionID id.SessionID, name stage.Name) (workflow.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, exists := s.results[key{session: sessionID, stage: name}]
	if !exists {
		return workflow.StageResult{}, fmt.Errorf("result for stage %s: %w", name, sentinel.ErrNotFound)
	}
	return res, nil
}

// ListBySession returns the session's results in chain order.
func (s *InMemoryStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]workflow.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []workflow.StageResult
	for _, name := range stage.Chain {
		if res, exists := s.results[key{session: sessionID, stage: name}]; exists {
			out = append(out, res)
		}
	}
	return out, nil
}

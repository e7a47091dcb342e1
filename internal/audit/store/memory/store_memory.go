package memory

import (
	"context"
	"fmt"
	"sync"

	"careflow/internal/audit"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// Store keeps audit entries in ordered per-session slices guarded by a
// RWMutex. The append path serializes per process; the workflow service
// additionally serializes per session.
type Store struct {
	mu      sync.RWMutex
	entries map[id.SessionID][]audit.Entry

	// failNext simulates a durability failure for tests exercising the
	// halt-on-append-failure path.
	failNext error
}

func New() *Store {
	return &Store{entries: make(map[id.SessionID][]audit.Entry)}
}

// FailNextAppend makes the next Append return err. Test hook.
func (s *Store) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	existing := s.entries[entry.SessionID]
	want := uint64(len(existing)) + 1
	if entry.Seq != want {
		return fmt.Errorf("sequence gap: got %d, want %d: %w", entry.Seq, want, sentinel.ErrConflict)
	}
	s.entries[entry.SessionID] = append(existing, entry)
	return nil
}

func (s *Store) ReadSession(_ context.Context, sessionID id.SessionID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries[sessionID]...), nil
}

func (s *Store) LastSeq(_ context.Context, sessionID id.SessionID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries[sessionID])), nil
}

// Package emr provides the EMR record stores: in-memory for tests and
// development, PostgreSQL for production.
package emr

import (
	"context"
	"fmt"
	"sync"

	"careflow/internal/dispatch"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// InMemoryStore keeps committed records in an append-only slice with a
// session index for deduplication.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   []dispatch.EMRRecord
	bySession map[id.SessionID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySession: make(map[id.SessionID]int)}
}

func (s *InMemoryStore) Append(_ context.Context, record dispatch.EMRRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[record.SessionID]; exists {
		return fmt.Errorf("EMR record for session %s: %w", record.SessionID, sentinel.ErrDuplicate)
	}
	s.bySession[record.SessionID] = len(s.records)
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) Supersede(_ context.Context, record dispatch.EMRRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[record.SessionID]; !exists {
		return fmt.Errorf("EMR record for session %s: %w", record.SessionID, sentinel.ErrNotFound)
	}
	s.bySession[record.SessionID] = len(s.records)
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID id.SessionID) (dispatch.EMRRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.bySession[sessionID]
	if !exists {
		return dispatch.EMRRecord{}, fmt.Errorf("EMR record for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return s.records[idx], nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientID id.PatientID) ([]dispatch.EMRRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dispatch.EMRRecord
	for _, record := range s.records {
		if record.PatientID == patientID {
			out = append(out, record)
		}
	}
	return out, nil
}

// Len reports the number of committed records. Used by tests asserting
// that aborted sessions left the store untouched.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Package order provides the pharmacy order stores: in-memory for tests
// and development, PostgreSQL for production.
package order

import (
	"context"
	"fmt"
	"sync"

	"careflow/internal/dispatch"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// InMemoryStore keeps dispatched orders in an append-only slice with a
// session index for deduplication.
type InMemoryStore struct {
	mu        sync.RWMutex
	orders    []dispatch.PharmacyOrder
	bySession map[id.SessionID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySession: make(map[id.SessionID]int)}
}

func (s *InMemoryStore) Append(_ context.Context, order dispatch.PharmacyOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[order.SessionID]; exists {
		return fmt.Errorf("pharmacy order for session %s: %w", order.SessionID, sentinel.ErrDuplicate)
	}
	s.bySession[order.SessionID] = len(s.orders)
	s.orders = append(s.orders, order)
	return nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID id.SessionID) (dispatch.PharmacyOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.bySession[sessionID]
	if !exists {
		return dispatch.PharmacyOrder{}, fmt.Errorf("pharmacy order for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return s.orders[idx], nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientID id.PatientID) ([]dispatch.PharmacyOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dispatch.PharmacyOrder
	for _, order := range s.orders {
		if order.PatientID == patientID {
			out = append(out, order)
		}
	}
	return out, nil
}

// Len reports the number of dispatched orders.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

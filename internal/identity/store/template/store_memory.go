package template

import (
	"context"
	"sync"

	"careflow/internal/identity"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// InMemoryStore keeps templates in a map guarded by a RWMutex. Favors
// clarity over performance.
type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[id.PatientID]identity.Enrollment
}

func New() *InMemoryStore {
	return &InMemoryStore{templates: make(map[id.PatientID]identity.Enrollment)}
}

// Save stores or replaces the patient's template. Re-enrollment replaces
// the previous capture.
func (s *InMemoryStore) Save(_ context.Context, enrollment identity.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[enrollment.PatientID] = enrollment
	return nil
}

func (s *InMemoryStore) FindByPatient(_ context.Context, patientID id.PatientID) (identity.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if enrollment, ok := s.templates[patientID]; ok {
		return enrollment, nil
	}
	return identity.Enrollment{}, sentinel.ErrNotFound
}

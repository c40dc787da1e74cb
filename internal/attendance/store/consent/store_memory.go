package consent

import (
	"context"
	"sync"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// InMemoryStore holds at most one consent record per employee.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.EmployeeID]models.ConsentRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.EmployeeID]models.ConsentRecord)}
}

func (s *InMemoryStore) Find(_ context.Context, employeeID models.EmployeeID) (*models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Save stores rec unless a record already exists, in which case the existing
// record is returned and created is false.
func (s *InMemoryStore) Save(_ context.Context, rec models.ConsentRecord) (stored *models.ConsentRecord, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.EmployeeID]; ok {
		return &existing, false, nil
	}
	s.records[rec.EmployeeID] = rec
	return &rec, true, nil
}

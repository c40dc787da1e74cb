package employee

import (
	"context"
	"slices"
	"sync"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// InMemoryStore keeps employees in insertion order so scans are deterministic.
type InMemoryStore struct {
	mu        sync.RWMutex
	employees map[models.EmployeeID]*models.Employee
	order     []models.EmployeeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{employees: make(map[models.EmployeeID]*models.Employee)}
}

func clone(e *models.Employee) *models.Employee {
	c := *e
	c.PermittedUnitIDs = slices.Clone(e.PermittedUnitIDs)
	return &c
}

func (s *InMemoryStore) Save(_ context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.employees[e.ID] = clone(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.EmployeeID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

// FindByLegalID matches the stored value exactly.
func (s *InMemoryStore) FindByLegalID(_ context.Context, legalID string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if e := s.employees[id]; e.LegalID == legalID {
			return clone(e), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ScanLegalIDs visits every stored legal ID until fn returns false.
func (s *InMemoryStore) ScanLegalIDs(ctx context.Context, fn func(id models.EmployeeID, legalID string) bool) error {
	s.mu.RLock()
	type row struct {
		id      models.EmployeeID
		legalID string
	}
	rows := make([]row, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, row{id: id, legalID: s.employees[id].LegalID})
	}
	s.mu.RUnlock()

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(r.id, r.legalID) {
			return nil
		}
	}
	return nil
}

func (s *InMemoryStore) UpdateLegalID(_ context.Context, id models.EmployeeID, legalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.LegalID = legalID
	return nil
}

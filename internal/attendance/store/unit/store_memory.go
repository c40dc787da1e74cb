package unit

import (
	"context"
	"sync"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// InMemoryStore holds work units and their unit-bound credentials.
type InMemoryStore struct {
	mu          sync.RWMutex
	units       map[models.UnitID]*models.WorkUnit
	credentials map[string]*models.AccessCredential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		units:       make(map[models.UnitID]*models.WorkUnit),
		credentials: make(map[string]*models.AccessCredential),
	}
}

func cloneUnit(u *models.WorkUnit) *models.WorkUnit {
	c := *u
	if u.Fence != nil {
		f := *u.Fence
		c.Fence = &f
	}
	return &c
}

func (s *InMemoryStore) SaveUnit(_ context.Context, u *models.WorkUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = cloneUnit(u)
	return nil
}

func (s *InMemoryStore) SaveCredential(_ context.Context, c *models.AccessCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.credentials[c.Code] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.UnitID) (*models.WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneUnit(u), nil
}

// FindByIDs returns the known units in the order of ids. Unknown IDs are skipped.
func (s *InMemoryStore) FindByIDs(_ context.Context, ids []models.UnitID) ([]*models.WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.WorkUnit, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.units[id]; ok {
			out = append(out, cloneUnit(u))
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindCredential(_ context.Context, code string) (*models.AccessCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

package supervisor

import (
	"context"
	"slices"
	"sync"

	"ponto/internal/attendance/models"
)

// InMemoryStore maps groups to their supervisors.
type InMemoryStore struct {
	mu     sync.RWMutex
	groups map[string][]models.Supervisor
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{groups: make(map[string][]models.Supervisor)}
}

func (s *InMemoryStore) Save(_ context.Context, sup models.Supervisor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.groups[sup.GroupID]
	if i := slices.IndexFunc(list, func(x models.Supervisor) bool { return x.Email == sup.Email }); i >= 0 {
		list[i] = sup
		return nil
	}
	s.groups[sup.GroupID] = append(list, sup)
	return nil
}

func (s *InMemoryStore) ListByGroup(_ context.Context, groupID string) ([]models.Supervisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups[groupID]), nil
}

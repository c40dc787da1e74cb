package clockevent

import (
	"context"
	"sync"
	"time"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
	psync "ponto/pkg/platform/sync"
)

type dayKey struct {
	key models.DedupKey
	day string
}

// InMemoryStore keeps events in memory. Commits for the same key are
// serialized by a sharded mutex; the daily index mirrors the postgres
// unique constraint.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []*models.ClockEvent
	byID   map[models.EventID]*models.ClockEvent
	daily  map[dayKey]models.EventID
	locks  *psync.ShardedMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[models.EventID]*models.ClockEvent),
		daily: make(map[dayKey]models.EventID),
		locks: psync.NewShardedMutex(),
	}
}

func (s *InMemoryStore) Commit(ctx context.Context, key models.DedupKey, build BuildFunc) (*models.ClockEvent, error) {
	var committed *models.ClockEvent
	err := s.locks.WithLock(key.String(), func() error {
		ev, err := build(ctx, s)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		dk := dayKey{key: ev.Key(), day: ev.LocalDay}
		if _, exists := s.daily[dk]; exists {
			return sentinel.ErrConflict
		}
		if _, exists := s.byID[ev.ID]; exists {
			return sentinel.ErrConflict
		}
		stored := *ev
		s.events = append(s.events, &stored)
		s.byID[ev.ID] = &stored
		s.daily[dk] = ev.ID
		committed = ev
		return nil
	})
	return committed, err
}

func (s *InMemoryStore) LatestSince(_ context.Context, key models.DedupKey, since time.Time) (*models.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ClockEvent
	for _, e := range s.events {
		if e.Key() != key || e.Timestamp.Before(since) {
			continue
		}
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryStore) ExistsBetween(_ context.Context, key models.DedupKey, from, to time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.Key() == key && !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.EventID) (*models.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// FindByProtocolCode returns every event carrying code, oldest first.
func (s *InMemoryStore) FindByProtocolCode(_ context.Context, code string) ([]*models.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ClockEvent
	for _, e := range s.events {
		if e.ProtocolCode == code {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Count returns the number of committed events.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

var _ dedup.Reader = (*InMemoryStore)(nil)

package clockevent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
	"ponto/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	key   models.DedupKey
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.key = models.DedupKey{EmployeeID: "E1", UnitID: "U1", Type: models.EventClockIn}
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newEvent(id string, at time.Time) *models.ClockEvent {
	return &models.ClockEvent{
		ID: models.EventID(id), EmployeeID: "E1", UnitID: "U1", Type: models.EventClockIn,
		Timestamp: at, LocalDay: at.Format(time.DateOnly), ProtocolCode: "KL-20250310-" + id,
	}
}

func (s *InMemoryStoreSuite) TestCommitAndRead() {
	ctx := context.Background()
	ev := s.newEvent("A", s.now)

	committed, err := s.store.Commit(ctx, s.key, func(context.Context, dedup.Reader) (*models.ClockEvent, error) {
		return ev, nil
	})
	s.Require().NoError(err)
	s.Equal(ev.ID, committed.ID)

	found, err := s.store.FindByID(ctx, "A")
	s.Require().NoError(err)
	s.Equal(ev.Timestamp, found.Timestamp)

	byCode, err := s.store.FindByProtocolCode(ctx, "KL-20250310-A")
	s.Require().NoError(err)
	s.Len(byCode, 1)

	latest, err := s.store.LatestSince(ctx, s.key, s.now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Equal(models.EventID("A"), latest.ID)

	_, err = s.store.LatestSince(ctx, s.key, s.now.Add(time.Second))
	s.ErrorIs(err, sentinel.ErrNotFound)

	exists, err := s.store.ExistsBetween(ctx, s.key, s.now, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.True(exists)
	exists, err = s.store.ExistsBetween(ctx, s.key, s.now.Add(time.Nanosecond), s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(exists)
}

func (s *InMemoryStoreSuite) TestBuildErrorWritesNothing() {
	_, err := s.store.Commit(context.Background(), s.key, func(context.Context, dedup.Reader) (*models.ClockEvent, error) {
		return nil, errors.New("seal failed")
	})
	s.Error(err)
	s.Zero(s.store.Count())
}

func (s *InMemoryStoreSuite) TestDailyIndexRejectsSecondEvent() {
	ctx := context.Background()
	_, err := s.store.Commit(ctx, s.key, func(context.Context, dedup.Reader) (*models.ClockEvent, error) {
		return s.newEvent("A", s.now), nil
	})
	s.Require().NoError(err)

	_, err = s.store.Commit(ctx, s.key, func(context.Context, dedup.Reader) (*models.ClockEvent, error) {
		return s.newEvent("B", s.now.Add(time.Hour)), nil
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

// Concurrent submissions for one key serialize through the shard lock so the
// guard inside build sees the winner and rejects the rest.
func (s *InMemoryStoreSuite) TestConcurrentCommitsYieldOneEvent() {
	guard := dedup.NewGuard(120*time.Second, time.UTC)

	result := testutil.RunConcurrent(20, func(i int) error {
		_, err := s.store.Commit(context.Background(), s.key, func(ctx context.Context, r dedup.Reader) (*models.ClockEvent, error) {
			if err := guard.Check(ctx, r, s.key, s.now); err != nil {
				return nil, err
			}
			return s.newEvent(fmt.Sprintf("E%d", i), s.now), nil
		})
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
	s.Equal(int32(19), result.Reasons[string(models.KindDuplicateSubmission)])
	s.Equal(1, s.store.Count())
}

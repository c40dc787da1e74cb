//go:build integration

package dedup_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/models"
	"ponto/pkg/testutil/containers"
)

type RedisClaimerSuite struct {
	suite.Suite
	client  *redis.Client
	claimer *dedup.RedisClaimer
}

func TestRedisClaimerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisClaimerSuite))
}

func (s *RedisClaimerSuite) SetupSuite() {
	rc := containers.GetManager().GetRedis(s.T())
	opts, err := redis.ParseURL(rc.URL)
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.claimer = dedup.NewRedisClaimer(s.client)
}

func (s *RedisClaimerSuite) TearDownSuite() {
	_ = s.client.Close()
}

func (s *RedisClaimerSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(context.Background()).Err())
}

func (s *RedisClaimerSuite) key() models.DedupKey {
	return models.DedupKey{EmployeeID: "E1", UnitID: "U1", Type: models.EventClockIn}
}

func (s *RedisClaimerSuite) TestSecondClaimIsRefused() {
	ctx := context.Background()

	_, ok, err := s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	_, ok, err = s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisClaimerSuite) TestReleaseFreesTheKey() {
	ctx := context.Background()

	release, ok, err := s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NoError(release(ctx))

	_, ok, err = s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisClaimerSuite) TestClaimExpires() {
	ctx := context.Background()

	_, ok, err := s.claimer.Claim(ctx, s.key(), 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Eventually(func() bool {
		_, ok, err := s.claimer.Claim(ctx, s.key(), time.Minute)
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)
}

// A stale release must not delete a claim taken over by another request.
func (s *RedisClaimerSuite) TestStaleReleaseKeepsNewOwner() {
	ctx := context.Background()

	staleRelease, _, err := s.claimer.Claim(ctx, s.key(), 100*time.Millisecond)
	s.Require().NoError(err)
	time.Sleep(200 * time.Millisecond)

	_, ok, err := s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Require().NoError(staleRelease(ctx))
	_, ok, err = s.claimer.Claim(ctx, s.key(), time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

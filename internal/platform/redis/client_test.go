package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ponto/internal/platform/config"
	"ponto/internal/platform/redis"
)

func TestOptionsOverrideURL(t *testing.T) {
	opts, err := redis.Options(config.RedisConfig{
		URL:         "redis://cache:6380/2?pool_size=50",
		PoolSize:    8,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, "ponto-attendance", opts.ClientName)
}

func TestOptionsKeepURLWhenUnset(t *testing.T) {
	opts, err := redis.Options(config.RedisConfig{URL: "redis://cache:6379/0?pool_size=50"})
	require.NoError(t, err)
	assert.Equal(t, 50, opts.PoolSize)
}

func TestOptionsRejectBadURL(t *testing.T) {
	_, err := redis.Options(config.RedisConfig{URL: "http://cache"})
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNewWithoutURL(t *testing.T) {
	c, err := redis.New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

type fixedPool struct{ stats *goredis.PoolStats }

func (p fixedPool) PoolStats() *goredis.PoolStats { return p.stats }

func TestPoolCollectorReportsStats(t *testing.T) {
	c := redis.NewPoolCollector(fixedPool{stats: &goredis.PoolStats{
		Hits: 12, Misses: 3, TotalConns: 5, IdleConns: 2,
	}})

	assert.Equal(t, 6, testutil.CollectAndCount(c))
	expected := `
# HELP ponto_redis_pool_hits_total Connections found free in the pool.
# TYPE ponto_redis_pool_hits_total counter
ponto_redis_pool_hits_total{client="ponto-attendance"} 12
# HELP ponto_redis_pool_idle_conns Idle connections currently in the pool.
# TYPE ponto_redis_pool_idle_conns gauge
ponto_redis_pool_idle_conns{client="ponto-attendance"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"ponto_redis_pool_hits_total", "ponto_redis_pool_idle_conns"))
}

func TestPoolCollectorSkipsMissingStats(t *testing.T) {
	assert.Equal(t, 0, testutil.CollectAndCount(redis.NewPoolCollector(fixedPool{})))
}

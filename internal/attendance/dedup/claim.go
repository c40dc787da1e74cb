package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ponto/internal/attendance/models"
)

// Claimer reserves the duplicate window for a key across replicas before the
// slow evidence upload, so concurrent submissions fail fast.
type Claimer interface {
	// Claim returns a release func when the key was free, or ok=false when
	// another request holds it.
	Claim(ctx context.Context, key models.DedupKey, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

const claimPrefix = "ponto:clock-window:"

// releaseScript deletes the claim only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer implements Claimer with SET NX PX.
type RedisClaimer struct {
	client redis.UniversalClient
}

func NewRedisClaimer(client redis.UniversalClient) *RedisClaimer {
	return &RedisClaimer{client: client}
}

func (c *RedisClaimer) Claim(ctx context.Context, key models.DedupKey, ttl time.Duration) (func(context.Context) error, bool, error) {
	redisKey := claimPrefix + key.String()
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim duplicate window: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("release duplicate window: %w", err)
		}
		return nil
	}
	return release, true, nil
}

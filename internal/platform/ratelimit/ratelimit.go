// Package ratelimit caps request rates per client with a sliding window.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole seconds until the window admits another request.
func (r Result) RetryAfter(now time.Time) int {
	if r.Allowed {
		return 0
	}
	return max(0, int(r.ResetAt.Sub(now).Round(time.Second).Seconds()))
}

// Store counts requests per key. Rejected requests are not counted.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

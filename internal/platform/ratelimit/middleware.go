package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/httputil"
	"ponto/pkg/platform/privacy"
	"ponto/pkg/requestcontext"
)

// ReasonRateLimited is the rejection reason clients see on 429.
const ReasonRateLimited = "rate_limited"

// Policy is a request budget per client IP.
type Policy struct {
	// Class separates budgets of different endpoint groups.
	Class  string
	Limit  int
	Window time.Duration
}

// PerClientIP limits requests by the client IP the metadata middleware
// extracted. A failing store lets requests through.
func PerClientIP(store Store, policy Policy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			now := requestcontext.Now(ctx)

			result, err := store.Allow(ctx, policy.Class+":"+ip, policy.Limit, policy.Window, now)
			if err != nil {
				if logger != nil {
					logger.ErrorContext(ctx, "failed to check rate limit",
						"error", err,
						"ip_prefix", privacy.AnonymizeIP(ip),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter(now)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteError(w, dErrors.NewWithReason(dErrors.CodeTooManyRequests, ReasonRateLimited,
					"too many requests from this device; try again shortly",
					map[string]any{"retryAfterSeconds": retryAfter}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package requestcontext carries request-scoped values explicitly through
// context.Context so services never read ambient globals for time, headers,
// or client identity. Tests inject fixed clocks and synthetic headers with the
// With* helpers.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	timeKey        struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceIDKey    struct{}
	fingerprintKey struct{}
)

// WithRequestID stores the correlation ID for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time. Falls back to time.Now() for
// non-HTTP callers (workers, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithClientMetadata stores the resolved client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP returns the client IP resolved by the metadata middleware.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// UserAgent returns the raw User-Agent header.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithDeviceID stores the client-reported device identifier.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// DeviceID returns the client-reported device identifier.
func DeviceID(ctx context.Context) string {
	v, _ := ctx.Value(deviceIDKey{}).(string)
	return v
}

// WithDeviceFingerprint stores the fingerprint computed from the User-Agent.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, fingerprintKey{}, fingerprint)
}

// DeviceFingerprint returns the fingerprint computed from the User-Agent.
func DeviceFingerprint(ctx context.Context) string {
	v, _ := ctx.Value(fingerprintKey{}).(string)
	return v
}

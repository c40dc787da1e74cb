package device

import (
	"net/http"
	"strings"

	"ponto/pkg/requestcontext"
)

// MaxDeviceIDLength bounds the client-reported device identifier.
const MaxDeviceIDLength = 128

// DeviceConfig holds configuration for the Device middleware.
type DeviceConfig struct {
	// FingerprintFn computes a device fingerprint from the User-Agent string.
	FingerprintFn func(userAgent string) string

	// HeaderName is the header kiosks and the mobile app use to report their
	// device ID (e.g. "X-Device-ID").
	HeaderName string

	// CookieName is consulted when the header is absent (browser clients).
	CookieName string
}

// Device extracts the client-reported device ID and pre-computes the device
// fingerprint. It must run after the metadata middleware, which extracts the
// User-Agent. Both values are best-effort: absence never rejects a request.
func Device(cfg *DeviceConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if deviceID := extractDeviceID(r, cfg); deviceID != "" {
				ctx = requestcontext.WithDeviceID(ctx, deviceID)
			}

			if cfg.FingerprintFn != nil {
				if userAgent := requestcontext.UserAgent(ctx); userAgent != "" {
					ctx = requestcontext.WithDeviceFingerprint(ctx, cfg.FingerprintFn(userAgent))
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractDeviceID(r *http.Request, cfg *DeviceConfig) string {
	var raw string
	if cfg.HeaderName != "" {
		raw = r.Header.Get(cfg.HeaderName)
	}
	if raw == "" && cfg.CookieName != "" {
		if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie != nil {
			raw = cookie.Value
		}
	}
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxDeviceIDLength {
		return ""
	}
	return raw
}

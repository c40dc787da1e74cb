// Package device turns the best-effort client fingerprint fields into the
// values stored with a clock event.
package device

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"

	"ponto/internal/attendance/models"
	"ponto/pkg/requestcontext"
)

// Label extracts a display name such as "Chrome on Android" from a User-Agent.
// Returns "" for an empty User-Agent since the field is optional.
func Label(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}
	ua := useragent.New(userAgentString)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

// Fingerprint is a stable hash of browser family, major version, OS and form
// factor. It deliberately excludes the IP, which changes between networks.
func Fingerprint(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}
	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if v, _, _ := strings.Cut(version, "."); v != "" {
		majorVersion = v
	}
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}

	hash := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s", browser, majorVersion, os, platform))
	return hex.EncodeToString(hash[:])
}

// FingerprintOf returns the fingerprint the device middleware stored, or
// derives it from the User-Agent when the request bypassed the middleware.
func FingerprintOf(ctx context.Context) string {
	if fp := requestcontext.DeviceFingerprint(ctx); fp != "" {
		return fp
	}
	return Fingerprint(requestcontext.UserAgent(ctx))
}

// FromContext builds the event's device fields. A device ID sent in the form
// wins over the one the device middleware took from headers.
func FromContext(ctx context.Context, formDeviceID string) models.Device {
	deviceID := formDeviceID
	if deviceID == "" {
		deviceID = requestcontext.DeviceID(ctx)
	}
	userAgent := requestcontext.UserAgent(ctx)
	return models.Device{
		IP:          requestcontext.ClientIP(ctx),
		UserAgent:   userAgent,
		DeviceID:    deviceID,
		Label:       Label(userAgent),
		Fingerprint: FingerprintOf(ctx),
	}
}

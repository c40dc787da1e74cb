// Package protocol derives the tamper-evidence digest and the human-shareable
// protocol code of a clock event.
package protocol

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"ponto/internal/attendance/models"
)

// Prefix starts every protocol code.
const Prefix = "KL-"

// CodePattern matches a well-formed protocol code.
var CodePattern = regexp.MustCompile(`^KL-\d{8}-[0-9A-F]{8}$`)

var errIncomplete = errors.New("protocol: event is missing timestamp, unit or type")

// Canonical renders the labeled, fixed-order string the digest is computed
// over. Absent optional fields render empty.
func Canonical(ev *models.ClockEvent) string {
	var b strings.Builder
	field := func(label, value string) {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(label)
		b.WriteByte('=')
		b.WriteString(value)
	}
	field("ts", ev.Timestamp.UTC().Format(time.RFC3339Nano))
	field("legalId", ev.LegalIDSnapshot)
	field("unit", string(ev.UnitID))
	field("type", string(ev.Type))
	field("ip", ev.Device.IP)
	field("device", ev.Device.DeviceID)
	field("credential", ev.CredentialRef)
	return b.String()
}

// Digest is the hex SHA-256 of the canonical string.
func Digest(ev *models.ClockEvent) string {
	sum := sha256.Sum256([]byte(Canonical(ev)))
	return hex.EncodeToString(sum[:])
}

// Code derives KL-YYYYMMDD-XXXXXXXX from the event's local day and digest.
func Code(ev *models.ClockEvent, digest string) string {
	day := strings.ReplaceAll(ev.LocalDay, "-", "")
	if day == "" {
		day = ev.Timestamp.UTC().Format("20060102")
	}
	return Prefix + day + "-" + strings.ToUpper(digest[:8])
}

// Seal sets Digest and ProtocolCode. It must run after every canonical field
// is final.
func Seal(ev *models.ClockEvent) error {
	if ev.Timestamp.IsZero() || ev.UnitID == "" || ev.Type == "" {
		return errIncomplete
	}
	ev.Digest = Digest(ev)
	ev.ProtocolCode = Code(ev, ev.Digest)
	return nil
}

// Verify recomputes the digest from the stored fields. A mismatch means the
// record changed after it was sealed.
func Verify(ev *models.ClockEvent) bool {
	want := Digest(ev)
	if subtle.ConstantTimeCompare([]byte(want), []byte(ev.Digest)) != 1 {
		return false
	}
	return ev.ProtocolCode == Code(ev, want)
}

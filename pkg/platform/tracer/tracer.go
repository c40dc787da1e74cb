// Package tracer provides a lightweight tracing abstraction for the clock-event pipeline.
//
// Implementations:
//   - MemoryTracer: discards spans (NewNoop) or keeps them for assertions (NewMemory)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := tr.Start(ctx, tracer.SpanResolveIdentity,
//	    tracer.String(tracer.AttrCredentialMode, "universal"),
//	)
//	defer span.End(err)
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashLegalID returns a short SHA-256 prefix of a legal ID so traces can be
// correlated without carrying the ID itself.
func HashLegalID(legalID string) string {
	if legalID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(legalID))
	return hex.EncodeToString(hash[:8])
}

// Span names, one per recorder stage.
const (
	SpanRecord          = "attendance.record"
	SpanResolveIdentity = "attendance.resolve_identity"
	SpanResolveFence    = "attendance.resolve_fence"
	SpanCheckConsent    = "attendance.check_consent"
	SpanCheckDuplicate  = "attendance.check_duplicate"
	SpanCaptureEvidence = "attendance.capture_evidence"
	SpanCommit          = "attendance.commit"
)

const (
	AttrCredentialMode = "credential.mode"
	AttrLegalIDHash    = "legal_id.hash"
	AttrEventType      = "event.type"
	AttrUnitID         = "unit.id"
	AttrDistanceMeters = "geo.distance_m"
	AttrRejectReason   = "reject.reason"
	AttrFailureKind    = "failure.kind"
	AttrEvidenceBytes  = "evidence.bytes"
)

const (
	EventNotificationQueued = "notification.queued"
	EventAuditEmitted       = "audit.emitted"
)

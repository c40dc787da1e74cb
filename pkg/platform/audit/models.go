package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	Action       string
	ResourceType string
	ResourceID   string
	Success      bool
	// Reason is the rejection kind for failed outcomes.
	Reason         string
	ActorID        string
	ActorIP        string
	ActorUserAgent string
	DeviceID       string
	RequestID      string
	Metadata       map[string]string
}

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

type Action string

const (
	ActionClockEventRecorded Action = "clock_event_recorded"
	ActionClockEventRejected Action = "clock_event_rejected"
	ActionConsentRecorded    Action = "consent_recorded"
	ActionReceiptVerified    Action = "receipt_verified"
)

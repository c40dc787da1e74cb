package recorder

import (
	"context"
	"time"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/evidence"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/notify"
	"ponto/internal/attendance/store/clockevent"
	"ponto/pkg/platform/audit"
)

// IdentityResolver resolves credentials and fixes the event's unit.
type IdentityResolver interface {
	Resolve(ctx context.Context, code, rawLegalID string) (*identity.Identity, error)
	ResolveUnit(id *identity.Identity, point models.GeoPoint) (*identity.FenceMatch, error)
	Repair(ctx context.Context, m *identity.Match) error
}

type ConsentGate interface {
	Check(ctx context.Context, employeeID models.EmployeeID) error
}

type EvidenceCapture interface {
	Capture(ctx context.Context, employeeID models.EmployeeID, day string, up *models.EvidenceUpload) (*evidence.Stored, error)
}

// EventStore is the clock-event persistence the recorder writes through.
// Error Contract: Commit returns sentinel.ErrConflict when the daily unique
// index rejects the insert; errors returned by build pass through unchanged.
type EventStore interface {
	dedup.Reader
	Commit(ctx context.Context, key models.DedupKey, build clockevent.BuildFunc) (*models.ClockEvent, error)
}

// EventReader looks up committed events for receipt verification.
// Error Contract: FindByID returns sentinel.ErrNotFound.
type EventReader interface {
	FindByID(ctx context.Context, id models.EventID) (*models.ClockEvent, error)
	FindByProtocolCode(ctx context.Context, code string) ([]*models.ClockEvent, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Notifier interface {
	Enqueue(ctx context.Context, n notify.Notification) bool
}

type ReceiptIssuer interface {
	Issue(ev *models.ClockEvent) (string, error)
}

// Claimer reserves the duplicate window across replicas.
type Claimer interface {
	Claim(ctx context.Context, key models.DedupKey, ttl time.Duration) (func(context.Context) error, bool, error)
}

// Package consent gates clock events on an on-file acknowledgement and
// records new acknowledgements.
package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/pkg/platform/audit"
	"ponto/pkg/platform/privacy"
	"ponto/pkg/platform/sentinel"
	"ponto/pkg/requestcontext"
)

// Store persists consent records.
// Error Contract: Find returns sentinel.ErrNotFound when the employee has none.
type Store interface {
	Find(ctx context.Context, employeeID models.EmployeeID) (*models.ConsentRecord, error)
	Save(ctx context.Context, rec models.ConsentRecord) (*models.ConsentRecord, bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Gate rejects employees without a consent record.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Check returns ConsentRequired, carrying the employee ID so the client can
// route to the acknowledgement flow.
func (g *Gate) Check(ctx context.Context, employeeID models.EmployeeID) error {
	_, err := g.store.Find(ctx, employeeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Reject(models.KindConsentRequired,
			"you must accept the attendance monitoring terms before recording attendance",
			map[string]any{"employeeId": employeeID.String()})
	}
	if err != nil {
		return fmt.Errorf("find consent: %w", err)
	}
	return nil
}

// Result is the outcome of an acknowledgement.
type Result struct {
	Record  *models.ConsentRecord
	Created bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// Service records acknowledgements for employees identified by legal ID.
type Service struct {
	store   Store
	finder  identity.Finder
	auditor AuditPublisher
	logger  *slog.Logger
}

func NewService(store Store, finder identity.Finder, opts ...Option) *Service {
	s := &Service{store: store, finder: finder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acknowledge is idempotent: a second call returns the original record.
func (s *Service) Acknowledge(ctx context.Context, rawLegalID string) (*Result, error) {
	if rawLegalID == "" {
		return nil, models.Reject(models.KindMissingIdentity, "CPF is required", nil)
	}
	canonical, ok := identity.NormalizeLegalID(rawLegalID)
	if !ok {
		return nil, models.Reject(models.KindInvalidIdentity, "CPF must have 11 digits", nil)
	}
	match, err := s.finder.Find(ctx, canonical)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.Reject(models.KindIdentityNotFound, "no employee found for this CPF", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}

	rec, created, err := s.store.Save(ctx, models.ConsentRecord{
		EmployeeID:     match.Employee.ID,
		AcknowledgedAt: requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
		IP:             requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("save consent: %w", err)
	}

	if created {
		s.emit(ctx, rec)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "consent recorded",
				"employee_id", rec.EmployeeID.String(),
				"legal_id", privacy.MaskLegalID(canonical),
				"ip", privacy.AnonymizeIP(rec.IP),
			)
		}
	}
	return &Result{Record: rec, Created: created}, nil
}

func (s *Service) emit(ctx context.Context, rec *models.ConsentRecord) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(context.WithoutCancel(ctx), audit.Event{
		Timestamp:      rec.AcknowledgedAt,
		Action:         string(audit.ActionConsentRecorded),
		ResourceType:   "employee",
		ResourceID:     rec.EmployeeID.String(),
		Success:        true,
		ActorID:        rec.EmployeeID.String(),
		ActorIP:        rec.IP,
		ActorUserAgent: rec.UserAgent,
		RequestID:      requestcontext.RequestID(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionConsentRecorded, "error", err)
	}
}

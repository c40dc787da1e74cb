package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ponto/internal/attendance/models"
	"ponto/internal/attendance/protocol"
	"ponto/internal/attendance/receipt"
	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/audit"
	"ponto/pkg/platform/sentinel"
	"ponto/pkg/requestcontext"
)

// ReasonReceiptNotFound is returned when no event matches a receipt.
const ReasonReceiptNotFound = "receipt_not_found"

// VerifyRequest names a receipt by protocol code or by signed token.
type VerifyRequest struct {
	ProtocolCode string `json:"protocolCode"`
	ReceiptToken string `json:"receiptToken"`
}

func (r *VerifyRequest) Normalize() {
	r.ProtocolCode = strings.ToUpper(strings.TrimSpace(r.ProtocolCode))
	r.ReceiptToken = strings.TrimSpace(r.ReceiptToken)
}

func (r *VerifyRequest) Validate() error {
	if r.ProtocolCode == "" && r.ReceiptToken == "" {
		return models.Reject(models.KindMalformedRequest, "protocolCode or receiptToken is required", nil)
	}
	if r.ReceiptToken == "" && !protocol.CodePattern.MatchString(r.ProtocolCode) {
		return models.Reject(models.KindMalformedRequest, "protocolCode is malformed", nil)
	}
	return nil
}

// VerifiedEvent is one event a receipt resolved to. Valid is false when the
// stored fields no longer reproduce the sealed digest.
type VerifiedEvent struct {
	EventID      models.EventID   `json:"eventId"`
	UnitID       models.UnitID    `json:"unitId"`
	Type         models.EventType `json:"type"`
	Timestamp    time.Time        `json:"timestamp"`
	ProtocolCode string           `json:"protocolCode"`
	Valid        bool             `json:"valid"`
}

// Verification is the tamper check result. A protocol code carries only 32
// bits of the digest, so it can resolve to more than one event.
type Verification struct {
	Valid  bool            `json:"valid"`
	Events []VerifiedEvent `json:"events"`
}

type VerifierOption func(*Verifier)

func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func WithVerifierAuditor(a AuditPublisher) VerifierOption {
	return func(v *Verifier) {
		v.auditor = a
	}
}

// WithTokenParser enables verification by signed receipt token.
func WithTokenParser(p TokenParser) VerifierOption {
	return func(v *Verifier) {
		v.tokens = p
	}
}

type TokenParser interface {
	Parse(token string) (*receipt.Claims, error)
}

// Verifier recomputes digests of committed events from their stored fields.
type Verifier struct {
	events  EventReader
	tokens  TokenParser
	auditor AuditPublisher
	logger  *slog.Logger
}

func NewVerifier(events EventReader, opts ...VerifierOption) *Verifier {
	v := &Verifier{events: events}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (*Verification, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		result *Verification
		err    error
	)
	if req.ReceiptToken != "" {
		result, err = v.verifyToken(ctx, req.ReceiptToken)
	} else {
		result, err = v.verifyCode(ctx, req.ProtocolCode)
	}
	if err != nil {
		return nil, err
	}
	v.emit(ctx, req, result)
	return result, nil
}

func (v *Verifier) verifyToken(ctx context.Context, token string) (*Verification, error) {
	if v.tokens == nil {
		return nil, models.Reject(models.KindMalformedRequest, "receipt tokens are not enabled", nil)
	}
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	ev, err := v.events.FindByID(ctx, claims.EventID())
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	checked := check(ev)
	checked.Valid = checked.Valid && ev.Digest == claims.Digest && ev.ProtocolCode == claims.ProtocolCode
	return &Verification{Valid: checked.Valid, Events: []VerifiedEvent{checked}}, nil
}

func (v *Verifier) verifyCode(ctx context.Context, code string) (*Verification, error) {
	evs, err := v.events.FindByProtocolCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find events by protocol: %w", err)
	}
	if len(evs) == 0 {
		return nil, notFound()
	}
	out := &Verification{Valid: true, Events: make([]VerifiedEvent, 0, len(evs))}
	for _, ev := range evs {
		checked := check(ev)
		out.Valid = out.Valid && checked.Valid
		out.Events = append(out.Events, checked)
	}
	return out, nil
}

func check(ev *models.ClockEvent) VerifiedEvent {
	return VerifiedEvent{
		EventID:      ev.ID,
		UnitID:       ev.UnitID,
		Type:         ev.Type,
		Timestamp:    ev.Timestamp,
		ProtocolCode: ev.ProtocolCode,
		Valid:        protocol.Verify(ev),
	}
}

func notFound() error {
	return dErrors.NewWithReason(dErrors.CodeNotFound, ReasonReceiptNotFound, "no attendance record matches this receipt", nil)
}

func (v *Verifier) emit(ctx context.Context, req VerifyRequest, res *Verification) {
	if !res.Valid && v.logger != nil {
		v.logger.WarnContext(ctx, "receipt digest mismatch", "protocol", req.ProtocolCode, "events", len(res.Events))
	}
	if v.auditor == nil {
		return
	}
	for _, ev := range res.Events {
		err := v.auditor.Emit(context.WithoutCancel(ctx), audit.Event{
			Action:         string(audit.ActionReceiptVerified),
			ResourceType:   resourceClockEvent,
			ResourceID:     ev.EventID.String(),
			Success:        ev.Valid,
			ActorIP:        requestcontext.ClientIP(ctx),
			ActorUserAgent: requestcontext.UserAgent(ctx),
			RequestID:      requestcontext.RequestID(ctx),
			Metadata:       map[string]string{"protocolCode": ev.ProtocolCode},
		})
		if err != nil && v.logger != nil {
			v.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionReceiptVerified, "error", err)
		}
	}
}

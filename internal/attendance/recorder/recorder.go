// Package recorder runs a clock-event submission through every gate in a
// fixed order and commits it as a sealed, immutable record.
package recorder

import (
	"errors"
	"log/slog"
	"time"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/metrics"
	"ponto/pkg/platform/tracer"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultAsideTimeout = 3 * time.Second
)

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Recorder) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(r *Recorder) {
		r.auditor = a
	}
}

func WithNotifier(n Notifier) Option {
	return func(r *Recorder) {
		r.notifier = n
	}
}

// WithReceiptIssuer enables signed receipt tokens in the response.
func WithReceiptIssuer(i ReceiptIssuer) Option {
	return func(r *Recorder) {
		r.receipts = i
	}
}

// WithClaimer enables the cross-replica duplicate-window claim.
func WithClaimer(c Claimer) Option {
	return func(r *Recorder) {
		r.claimer = c
	}
}

// WithTimeout bounds every lookup, the evidence upload and the commit.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAsideTimeout bounds the best-effort side steps (repair, audit, claim release).
func WithAsideTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.asideTimeout = d
		}
	}
}

// Recorder is the clock-event state machine.
type Recorder struct {
	identity IdentityResolver
	consent  ConsentGate
	guard    *dedup.Guard
	evidence EvidenceCapture
	events   EventStore

	auditor  AuditPublisher
	notifier Notifier
	receipts ReceiptIssuer
	claimer  Claimer

	timeout      time.Duration
	asideTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       tracer.Tracer
}

func New(
	resolver IdentityResolver,
	consent ConsentGate,
	guard *dedup.Guard,
	evidence EvidenceCapture,
	events EventStore,
	opts ...Option,
) (*Recorder, error) {
	if resolver == nil || consent == nil || guard == nil || evidence == nil || events == nil {
		return nil, errors.New("recorder: resolver, consent gate, guard, evidence capture and event store are required")
	}
	r := &Recorder{
		identity:     resolver,
		consent:      consent,
		guard:        guard,
		evidence:     evidence,
		events:       events,
		timeout:      defaultTimeout,
		asideTimeout: defaultAsideTimeout,
		tracer:       tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

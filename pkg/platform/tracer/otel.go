package tracer

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the attendance pipeline in OpenTelemetry.
const InstrumentationName = "ponto/attendance"

// EventRejected marks a span that ended with a rejection rather than a fault.
const EventRejected = "attendance.rejected"

// OTelTracer adapts OpenTelemetry to Tracer. A span that carries
// AttrRejectReason when it ends is a rejection: its status stays unset and the
// reason is added as an event. Any other error marks the span as failed.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

// WithOTelTracer injects a preconfigured OpenTelemetry tracer.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// WithProvider takes the tracer from a provider instead of the global one.
func WithProvider(p trace.TracerProvider) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = p.Tracer(InstrumentationName)
	}
}

func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toOTelAttributes(attrs)...),
	)
	s := &otelSpan{span: span}
	s.noteReason(attrs)
	return ctx, s
}

type otelSpan struct {
	span   trace.Span
	reason atomic.Value
}

func (s *otelSpan) End(err error) {
	if err != nil {
		if reason, _ := s.reason.Load().(string); reason != "" {
			s.span.AddEvent(EventRejected, trace.WithAttributes(attribute.String(AttrRejectReason, reason)))
		} else {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.noteReason(attrs)
	s.span.SetAttributes(toOTelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOTelAttributes(attrs)...))
}

func (s *otelSpan) noteReason(attrs []Attribute) {
	for _, a := range attrs {
		if a.Key != AttrRejectReason {
			continue
		}
		if v, ok := a.Value.(string); ok {
			s.reason.Store(v)
		}
	}
}

// toOTelAttributes drops values of unsupported types.
func toOTelAttributes(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		key := attribute.Key(a.Key)
		switch v := a.Value.(type) {
		case string:
			if a.Key == AttrLegalIDHash && v == "" {
				continue
			}
			out = append(out, key.String(v))
		case bool:
			out = append(out, key.Bool(v))
		case int:
			out = append(out, key.Int(v))
		case int64:
			out = append(out, key.Int64(v))
		case float64:
			out = append(out, key.Float64(v))
		case []string:
			out = append(out, key.StringSlice(v))
		}
	}
	return out
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)

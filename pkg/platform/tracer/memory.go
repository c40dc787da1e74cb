package tracer

import (
	"context"
	"sync"
)

// FinishedSpan is a span captured by a MemoryTracer once End is called.
type FinishedSpan struct {
	Name   string
	Attrs  map[string]any
	Events []string
	Err    error
}

// RejectReason returns the reject.reason attribute, or "" when the stage passed.
func (s FinishedSpan) RejectReason() string {
	v, _ := s.Attrs[AttrRejectReason].(string)
	return v
}

// MemoryTracer keeps finished spans in memory so tests can assert which
// pipeline stages ran. A tracer built by NewNoop discards them.
type MemoryTracer struct {
	keep bool

	mu    sync.Mutex
	spans []FinishedSpan
}

// NewNoop returns a tracer that drops every span.
func NewNoop() *MemoryTracer {
	return &MemoryTracer{}
}

// NewMemory returns a tracer that records finished spans in End order.
func NewMemory() *MemoryTracer {
	return &MemoryTracer{keep: true}
}

func (t *MemoryTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	if !t.keep {
		return ctx, discardSpan{}
	}
	s := &memorySpan{tracer: t, span: FinishedSpan{Name: name, Attrs: map[string]any{}}}
	s.SetAttributes(attrs...)
	return ctx, s
}

// Spans returns a copy of the finished spans.
func (t *MemoryTracer) Spans() []FinishedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]FinishedSpan(nil), t.spans...)
}

// Names lists finished span names in End order.
func (t *MemoryTracer) Names() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	return names
}

// Find returns the last finished span with the given name.
func (t *MemoryTracer) Find(name string) (FinishedSpan, bool) {
	spans := t.Spans()
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Name == name {
			return spans[i], true
		}
	}
	return FinishedSpan{}, false
}

type memorySpan struct {
	tracer *MemoryTracer

	mu    sync.Mutex
	span  FinishedSpan
	ended bool
}

func (s *memorySpan) End(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.span.Err = err
	finished := s.span
	s.mu.Unlock()

	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, finished)
	s.tracer.mu.Unlock()
}

func (s *memorySpan) SetAttributes(attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		s.span.Attrs[a.Key] = a.Value
	}
}

func (s *memorySpan) AddEvent(name string, _ ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.Events = append(s.span.Events, name)
}

type discardSpan struct{}

func (discardSpan) End(error)                     {}
func (discardSpan) SetAttributes(...Attribute)    {}
func (discardSpan) AddEvent(string, ...Attribute) {}

var (
	_ Tracer = (*MemoryTracer)(nil)
	_ Span   = (*memorySpan)(nil)
)

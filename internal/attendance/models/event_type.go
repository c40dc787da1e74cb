package models

import "strings"

// EventType is the closed set of clock event kinds.
type EventType string

const (
	EventClockIn       EventType = "ENTRADA"
	EventClockOut      EventType = "SAIDA"
	EventBreakStart    EventType = "INTERVALO_INICIO"
	EventBreakEnd      EventType = "INTERVALO_FIM"
	EventOvertimeStart EventType = "HORA_EXTRA_INICIO"
	EventOvertimeEnd   EventType = "HORA_EXTRA_FIM"
)

var eventLabels = map[EventType]string{
	EventClockIn:       "clock-in",
	EventClockOut:      "clock-out",
	EventBreakStart:    "break start",
	EventBreakEnd:      "break end",
	EventOvertimeStart: "overtime start",
	EventOvertimeEnd:   "overtime end",
}

// ParseEventType accepts the canonical upper-case names, ignoring surrounding
// whitespace and case.
func ParseEventType(raw string) (EventType, bool) {
	t := EventType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.IsValid()
}

func (t EventType) IsValid() bool {
	_, ok := eventLabels[t]
	return ok
}

func (t EventType) String() string { return string(t) }

// Label is a human-readable name for messages and notifications.
func (t EventType) Label() string {
	if l, ok := eventLabels[t]; ok {
		return l
	}
	return string(t)
}

// AllEventTypes lists the event types in a stable order.
func AllEventTypes() []EventType {
	return []EventType{
		EventClockIn, EventClockOut,
		EventBreakStart, EventBreakEnd,
		EventOvertimeStart, EventOvertimeEnd,
	}
}

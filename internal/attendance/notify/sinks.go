package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"ponto/internal/attendance/models"
	"ponto/internal/platform/kafka/producer"
	"ponto/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while a sink's breaker is open.
var ErrCircuitOpen = errors.New("notify: circuit open")

// Producer publishes a record to the message bus.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes each notification as JSON keyed by employee, so one
// employee's events stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(n.EmployeeID),
		Value: value,
		Headers: map[string]string{
			"event-type": string(n.Type),
			"event-id":   n.EventID.String(),
		},
	})
}

// SupervisorLister returns the supervisors of a group.
type SupervisorLister interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Supervisor, error)
}

// Mailer sends composed messages; *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink mails every supervisor of the employee's group.
type EmailSink struct {
	supervisors SupervisorLister
	mailer      Mailer
	from        string
}

func NewEmailSink(supervisors SupervisorLister, mailer Mailer, from string) *EmailSink {
	return &EmailSink{supervisors: supervisors, mailer: mailer, from: from}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, n Notification) error {
	if n.GroupID == "" {
		return nil
	}
	sups, err := s.supervisors.ListByGroup(ctx, n.GroupID)
	if err != nil {
		return fmt.Errorf("list supervisors: %w", err)
	}
	msgs := make([]*gomail.Message, 0, len(sups))
	for _, sup := range sups {
		if sup.Email == "" {
			continue
		}
		msgs = append(msgs, composeEmail(s.from, sup, n))
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mailer.DialAndSend(msgs...)
}

func composeEmail(from string, sup models.Supervisor, n Notification) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetAddressHeader("To", sup.Email, sup.Name)
	m.SetHeader("Subject", fmt.Sprintf("%s: %s at %s", n.Type.Label(), n.EmployeeName, n.UnitName))

	var body strings.Builder
	fmt.Fprintf(&body, "%s recorded %s at %s.\n", n.EmployeeName, strings.ToLower(n.Type.Label()), n.UnitName)
	fmt.Fprintf(&body, "Time (UTC): %s\n", n.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&body, "Protocol: %s\n", n.ProtocolCode)
	m.SetBody("text/plain", body.String())
	return m
}

// BreakerSink stops calling a failing sink until its cooldown allows a trial call.
type BreakerSink struct {
	sink    Sink
	breaker *circuit.Breaker
}

func NewBreakerSink(sink Sink, breaker *circuit.Breaker) *BreakerSink {
	return &BreakerSink{sink: sink, breaker: breaker}
}

func (s *BreakerSink) Name() string { return s.sink.Name() }

func (s *BreakerSink) Send(ctx context.Context, n Notification) error {
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := s.sink.Send(ctx, n); err != nil {
		s.breaker.RecordFailure()
		return err
	}
	s.breaker.RecordSuccess()
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink only logs; used when no bus or mail server is configured.
type LogSink struct {
	log func(ctx context.Context, msg string, args ...any)
}

func NewLogSink(log func(ctx context.Context, msg string, args ...any)) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	if s.log != nil {
		s.log(ctx, "clock event notification",
			"event_id", n.EventID.String(),
			"unit_id", n.UnitID.String(),
			"type", string(n.Type),
		)
	}
	return nil
}

// Package notify fans committed clock events out to supervisors. The request
// path only enqueues; delivery happens on background workers.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ponto/internal/attendance/metrics"
	"ponto/internal/attendance/models"
)

// Notification is the event summary supervisors receive.
type Notification struct {
	EventID      models.EventID    `json:"eventId"`
	EmployeeID   models.EmployeeID `json:"employeeId"`
	EmployeeName string            `json:"employeeName"`
	GroupID      string            `json:"groupId,omitempty"`
	UnitID       models.UnitID     `json:"unitId"`
	UnitName     string            `json:"unitName"`
	Type         models.EventType  `json:"type"`
	Timestamp    time.Time         `json:"timestamp"`
	ProtocolCode string            `json:"protocolCode"`
}

// Sink delivers one notification over one channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultSendTimeout = 10 * time.Second
)

type Option func(*Dispatcher)

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher is a bounded queue drained by a fixed worker pool.
type Dispatcher struct {
	sink        Sink
	queue       chan Notification
	queueSize   int
	workers     int
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers immediately.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:        sink,
		queueSize:   defaultQueueSize,
		workers:     defaultWorkers,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Notification, d.queueSize)
	for range d.workers {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue never blocks. It reports false when the notification was dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, n, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- n:
		if d.metrics != nil {
			d.metrics.NotificationsQueued.Inc()
			d.metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
		}
		return true
	default:
		d.drop(ctx, n, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(ctx context.Context, n Notification, why string) {
	if d.metrics != nil {
		d.metrics.NotificationsDropped.Inc()
	}
	if d.logger != nil {
		d.logger.WarnContext(ctx, "notification dropped", "reason", why, "event_id", n.EventID.String())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		if d.metrics != nil {
			d.metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
		}
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, n); err != nil {
		if d.metrics != nil {
			d.metrics.NotificationsFailed.WithLabelValues(d.sink.Name()).Inc()
		}
		if d.logger != nil {
			d.logger.Error("notification delivery failed",
				"sink", d.sink.Name(),
				"event_id", n.EventID.String(),
				"error", err,
			)
		}
		return
	}
	if d.metrics != nil {
		d.metrics.NotificationsSent.WithLabelValues(d.sink.Name()).Inc()
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the clock-event pipeline.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	RecordDuration prometheus.Histogram
	EvidenceBytes  prometheus.Histogram
	FenceDistance  prometheus.Histogram

	ClaimErrors prometheus.Counter

	NotificationsQueued  prometheus.Counter
	NotificationsDropped prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotifyQueueDepth     prometheus.Gauge
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ponto_clock_events_recorded_total",
			Help: "Committed clock events, labeled by event type and credential mode",
		}, []string{"type", "mode"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ponto_clock_event_rejections_total",
			Help: "Rejected clock-event submissions, labeled by reason",
		}, []string{"reason"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ponto_clock_event_stage_duration_seconds",
			Help:    "Latency of each recorder stage",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"stage"}),
		RecordDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ponto_clock_event_record_duration_seconds",
			Help:    "End-to-end latency of a clock-event submission",
			Buckets: prometheus.DefBuckets,
		}),
		EvidenceBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ponto_evidence_bytes",
			Help:    "Size of stored evidence photos",
			Buckets: prometheus.ExponentialBuckets(16<<10, 2, 8),
		}),
		FenceDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ponto_fence_distance_meters",
			Help:    "Distance from the accepted unit's fence center",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ClaimErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ponto_duplicate_claim_errors_total",
			Help: "Distributed duplicate-window claims that failed and were skipped",
		}),
		NotificationsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "ponto_notifications_queued_total",
			Help: "Supervisor notifications accepted by the dispatcher",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ponto_notifications_dropped_total",
			Help: "Supervisor notifications dropped because the queue was full or closed",
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ponto_notifications_sent_total",
			Help: "Supervisor notifications delivered, labeled by sink",
		}, []string{"sink"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ponto_notifications_failed_total",
			Help: "Supervisor notification deliveries that failed, labeled by sink",
		}, []string{"sink"}),
		NotifyQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ponto_notify_queue_depth",
			Help: "Current number of queued supervisor notifications",
		}),
	}
}

// ObserveStage records the latency of one recorder stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncRecorded(eventType, mode string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(eventType, mode).Inc()
}

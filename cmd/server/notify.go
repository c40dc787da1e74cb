package main

import (
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"ponto/internal/attendance/metrics"
	"ponto/internal/attendance/notify"
	"ponto/internal/platform/config"
	"ponto/pkg/platform/circuit"
)

const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// newDispatcher fans notifications out to every configured channel, each
// behind its own breaker. With no channel configured notifications are logged.
func newDispatcher(cfg config.Config, in *infra, st *stores, log *slog.Logger, m *metrics.Metrics) *notify.Dispatcher {
	var sinks notify.MultiSink
	if in.producer != nil {
		sinks = append(sinks, guarded(notify.NewKafkaSink(in.producer, cfg.Kafka.NotifyTopic)))
	}
	if cfg.SMTP.Host != "" {
		dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
		sinks = append(sinks, guarded(notify.NewEmailSink(st.supervisors, dialer, cfg.SMTP.From)))
	}

	var sink notify.Sink = sinks
	switch len(sinks) {
	case 0:
		sink = notify.NewLogSink(log.InfoContext)
	case 1:
		sink = sinks[0]
	}

	return notify.NewDispatcher(sink,
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithLogger(log),
		notify.WithMetrics(m),
	)
}

func guarded(s notify.Sink) notify.Sink {
	return notify.NewBreakerSink(s, circuit.New(s.Name(),
		circuit.WithFailureThreshold(breakerFailures),
		circuit.WithCooldown(breakerCooldown),
	))
}

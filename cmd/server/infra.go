package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"ponto/internal/platform/config"
	"ponto/internal/platform/database"
	"ponto/internal/platform/health"
	"ponto/internal/platform/kafka"
	"ponto/internal/platform/kafka/producer"
	"ponto/internal/platform/redis"
)

// infra holds the optional external connections. Each is nil when its URL is
// not configured.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	out := &infra{}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	out.db = db
	if db == nil {
		log.Warn("DATABASE_URL not set; using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		out.Close(log)
		return nil, fmt.Errorf("redis: %w", err)
	}
	out.redis = rc
	if rc == nil {
		log.Info("REDIS_URL not set; duplicate window is enforced per replica at commit only")
	} else if err := prometheus.Register(redis.NewPoolCollector(rc)); err != nil {
		log.Warn("redis pool metrics not registered", "error", err)
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			out.Close(log)
			return nil, fmt.Errorf("kafka: %w", err)
		}
		out.producer = p
	}
	return out, nil
}

// registerChecks wires readiness. Only the database is required: without
// redis the claim is skipped and rate limiting falls back to memory, and
// notifications are best effort.
func (i *infra) registerChecks(h *health.Handler) {
	if i.db != nil {
		h.RegisterCheck("database", i.db.Health)
	}
	if i.redis != nil {
		h.RegisterCheck("redis", i.redis.Health, health.Optional())
	}
	if i.producer != nil {
		h.RegisterCheck("kafka", kafka.NewHealthChecker(i.producer).Check, health.Optional())
	}
}

// describe publishes which backend serves each concern on /health.
func (i *infra) describe(h *health.Handler, cfg config.Config) {
	h.SetComponent("stores", pick(i.db != nil, "postgres", "memory"))
	h.SetComponent("duplicateClaim", pick(i.redis != nil, "redis", "off"))
	h.SetComponent("rateLimit", pick(i.redis != nil, "redis", "memory"))
	h.SetComponent("evidence", evidenceBackend(cfg))
	var sinks []string
	if i.producer != nil {
		sinks = append(sinks, "kafka")
	}
	if cfg.SMTP.Host != "" {
		sinks = append(sinks, "email")
	}
	if len(sinks) == 0 {
		sinks = append(sinks, "log")
	}
	h.SetComponent("notifications", strings.Join(sinks, "+"))
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// Close releases connections in reverse order of opening.
func (i *infra) Close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Warn("kafka producer close failed", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	}
}

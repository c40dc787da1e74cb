package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultPingTimeout = 3 * time.Second

// Pinger reaches the brokers through an already-open client.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthChecker reports whether the notification bus is reachable over the
// producer's own connection, so readiness reflects what delivery would see.
type HealthChecker struct {
	client  Pinger
	timeout time.Duration
}

func NewHealthChecker(client Pinger) *HealthChecker {
	return &HealthChecker{client: client, timeout: defaultPingTimeout}
}

// WithTimeout overrides the per-check deadline.
func (h *HealthChecker) WithTimeout(d time.Duration) *HealthChecker {
	if d > 0 {
		h.timeout = d
	}
	return h
}

func (h *HealthChecker) Check(ctx context.Context) error {
	if h.client == nil {
		return errors.New("kafka producer not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.client.Health(ctx); err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}
	return nil
}

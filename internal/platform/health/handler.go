// Package health serves liveness, readiness and status endpoints. Readiness
// separates dependencies the engine cannot record without from ones whose
// loss only degrades it.
package health

import (
	"context"
	"maps"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"ponto/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

const checkTimeout = 2 * time.Second

const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

type check struct {
	fn       CheckFunc
	required bool
}

// CheckOption configures a registered check.
type CheckOption func(*check)

// Optional marks a dependency the engine can run without: the duplicate
// window claim, the rate limiter store, the notification bus. A failing
// optional check reports degraded but keeps the replica in rotation.
func Optional() CheckOption {
	return func(c *check) { c.required = false }
}

type Handler struct {
	startTime   time.Time
	environment string
	now         func() time.Time

	mu         sync.RWMutex
	checks     map[string]check
	components map[string]string
}

func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		now:         time.Now,
		checks:      make(map[string]check),
		components:  make(map[string]string),
	}
}

// RegisterCheck adds a readiness check. Checks are required unless Optional is passed.
func (h *Handler) RegisterCheck(name string, fn CheckFunc, opts ...CheckOption) {
	c := check{fn: fn, required: true}
	for _, opt := range opts {
		opt(&c)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// SetComponent records which backend serves a concern ("stores": "postgres").
func (h *Handler) SetComponent(name, backend string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = backend
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 while the process serves HTTP.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type CheckResult struct {
	Status    string `json:"status"`
	Required  bool   `json:"required"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently, each under its own deadline.
// Only a failing required check turns the response into a 503.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		wg.Go(func() {
			res := h.run(r.Context(), c)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	resp := ReadinessResponse{Status: StatusReady, Checks: results}
	for _, res := range results {
		if res.Status == "up" {
			continue
		}
		if res.Required {
			resp.Status = StatusNotReady
			break
		}
		resp.Status = StatusDegraded
	}

	status := http.StatusOK
	if resp.Status == StatusNotReady {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) run(ctx context.Context, c check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	start := h.now()
	err := c.fn(ctx)
	res := CheckResult{Status: "up", Required: c.required, LatencyMs: h.now().Sub(start).Milliseconds()}
	if err != nil {
		res.Status = "down"
		res.Error = err.Error()
	}
	return res
}

type StatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
	Components    map[string]string `json:"components,omitempty"`
	Checks        []string          `json:"checks,omitempty"`
}

// HandleStatus reports version, uptime and the backends wired at startup.
// It does not run checks.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	components := maps.Clone(h.components)
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	now := h.now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
		Components:    components,
		Checks:        names,
	})
}

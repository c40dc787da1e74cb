package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/dedup"
	attdevice "ponto/internal/attendance/device"
	"ponto/internal/attendance/evidence"
	"ponto/internal/attendance/handler"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/metrics"
	"ponto/internal/attendance/receipt"
	"ponto/internal/attendance/recorder"
	"ponto/internal/platform/config"
	"ponto/internal/platform/health"
	"ponto/internal/platform/logger"
	"ponto/internal/platform/ratelimit"
	auditmetrics "ponto/pkg/platform/audit/metrics"
	"ponto/pkg/platform/audit/publisher"
	"ponto/pkg/platform/middleware/device"
	"ponto/pkg/platform/middleware/metadata"
	"ponto/pkg/platform/middleware/request"
	"ponto/pkg/platform/middleware/requesttime"
	"ponto/pkg/platform/tracer"
)

const (
	shutdownTimeout = 15 * time.Second
	// formOverhead covers the text fields and multipart framing around the photo.
	formOverhead = 64 << 10
	// timeoutGrace lets the recorder hit its own deadline and answer with a
	// typed error before the HTTP timeout cuts in with a bare 503.
	timeoutGrace = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ponto:", err)
		os.Exit(1)
	}
}

// run wires dependencies, serves HTTP and drains background work on SIGINT/SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)
	log.Info("initializing ponto",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"timezone", cfg.Attendance.Location.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close(log)

	st, err := newStores(ctx, in, cfg, log)
	if err != nil {
		return err
	}

	attendanceMetrics := metrics.New()
	auditor := publisher.NewPublisher(st.audit,
		publisher.WithAsyncBuffer(1024),
		publisher.WithPublisherLogger(log),
		publisher.WithMetrics(auditmetrics.New()),
	)
	dispatcher := newDispatcher(cfg, in, st, log, attendanceMetrics)

	resolver, err := identity.New(st.employees, st.units, cfg.Attendance.UniversalCodePattern,
		identity.WithTieBreak(cfg.Attendance.TieBreak),
		identity.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("identity resolver: %w", err)
	}

	recOpts := []recorder.Option{
		recorder.WithLogger(log),
		recorder.WithMetrics(attendanceMetrics),
		recorder.WithTracer(tracer.NewOTel()),
		recorder.WithAuditor(auditor),
		recorder.WithNotifier(dispatcher),
		recorder.WithTimeout(cfg.Server.RequestTimeout),
	}
	verifierOpts := []recorder.VerifierOption{
		recorder.WithVerifierLogger(log),
		recorder.WithVerifierAuditor(auditor),
	}
	if cfg.Attendance.ReceiptSigningKey != "" {
		issuer, err := receipt.NewIssuer(cfg.Attendance.ReceiptSigningKey)
		if err != nil {
			return err
		}
		recOpts = append(recOpts, recorder.WithReceiptIssuer(issuer))
		verifierOpts = append(verifierOpts, recorder.WithTokenParser(issuer))
	}
	if in.redis != nil {
		recOpts = append(recOpts, recorder.WithClaimer(dedup.NewRedisClaimer(in.redis.Client)))
	}

	rec, err := recorder.New(
		resolver,
		consent.NewGate(st.consents),
		dedup.NewGuard(cfg.Attendance.DuplicateWindow, cfg.Attendance.Location),
		evidence.New(st.objects,
			evidence.WithMaxBytes(cfg.Attendance.EvidenceMaxBytes),
			evidence.WithLogger(log),
		),
		st.events,
		recOpts...,
	)
	if err != nil {
		return err
	}
	consentService := consent.NewService(st.consents, identity.DefaultFinder(st.employees),
		consent.WithLogger(log),
		consent.WithAuditor(auditor),
	)
	verifier := recorder.NewVerifier(st.events, verifierOpts...)

	var limits ratelimit.Store
	memLimits := ratelimit.NewInMemoryStore()
	if in.redis != nil {
		limits = ratelimit.NewRedisStore(in.redis.Client)
	} else {
		limits = memLimits
	}

	router, err := newRouter(cfg, log, in, limits,
		handler.New(rec, consentService, verifier, log, cfg.Attendance.EvidenceMaxBytes))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       handlerTimeout(cfg.Server.RequestTimeout) + 5*time.Second,
		WriteTimeout:      handlerTimeout(cfg.Server.RequestTimeout) + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Requests are drained, so nothing enqueues after this point.
		if closeErr := dispatcher.Close(shutdownCtx); closeErr != nil {
			log.Warn("notification queue not fully drained", "error", closeErr)
		}
		auditor.Close()
		if closeErr := st.objects.Close(); closeErr != nil {
			log.Warn("evidence bucket close failed", "error", closeErr)
		}
		return err
	})
	if in.redis == nil {
		g.Go(func() error {
			every(gctx, cfg.RateLimit.Window, func() {
				memLimits.Sweep(cfg.RateLimit.Window, time.Now())
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// handlerTimeout bounds a whole attendance request. It outlasts the recorder's
// own deadline so a slow submission still ends in the JSON error envelope.
func handlerTimeout(recorderTimeout time.Duration) time.Duration {
	return recorderTimeout + timeoutGrace
}

// every runs fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func newRouter(cfg config.Config, log *slog.Logger, in *infra, limits ratelimit.Store, attendance *handler.Handler) (chi.Router, error) {
	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: proxies}).Handler)
	r.Use(device.Device(&device.DeviceConfig{
		FingerprintFn: attdevice.Fingerprint,
		HeaderName:    "X-Device-ID",
		CookieName:    "ponto_device",
	}))
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))

	checks := health.New(cfg.Server.Environment)
	in.registerChecks(checks)
	in.describe(checks, cfg)
	checks.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.PerClientIP(limits, ratelimit.Policy{
			Class:  "attendance",
			Limit:  cfg.RateLimit.PerWindow,
			Window: cfg.RateLimit.Window,
		}, log))
		r.Use(request.Timeout(handlerTimeout(cfg.Server.RequestTimeout)))
		r.Use(request.BodyLimit(cfg.Attendance.EvidenceMaxBytes + formOverhead))
		attendance.Register(r)
	})
	return r, nil
}

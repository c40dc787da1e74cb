package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/notify"
	"ponto/internal/attendance/recorder"
	"ponto/internal/attendance/seed"
	"ponto/internal/attendance/store/clockevent"
	consentstore "ponto/internal/attendance/store/consent"
	"ponto/internal/attendance/store/employee"
	"ponto/internal/attendance/store/supervisor"
	"ponto/internal/attendance/store/unit"
	"ponto/internal/platform/config"
	"ponto/internal/platform/objectstore"
	"ponto/pkg/platform/audit"
	auditmemory "ponto/pkg/platform/audit/store/memory"
	auditpostgres "ponto/pkg/platform/audit/store/postgres"
)

type eventStore interface {
	recorder.EventStore
	recorder.EventReader
}

type stores struct {
	employees   identity.EmployeeStore
	units       identity.UnitStore
	consents    consent.Store
	events      eventStore
	supervisors notify.SupervisorLister
	audit       audit.Store
	objects     *objectstore.Bucket
}

// newStores picks postgres when a database is configured and in-memory
// stores otherwise; outside production the in-memory stores get demo data.
// Evidence goes to EVIDENCE_DIR when set.
func newStores(ctx context.Context, in *infra, cfg config.Config, log *slog.Logger) (*stores, error) {
	out := &stores{}
	if in.db != nil {
		db := in.db.DB()
		out.employees = employee.NewPostgres(db)
		out.units = unit.NewPostgres(db)
		out.consents = consentstore.NewPostgres(db)
		out.events = clockevent.NewPostgres(db)
		out.supervisors = supervisor.NewPostgres(db)
		out.audit = auditpostgres.New(db)
	} else {
		employees := employee.NewInMemoryStore()
		units := unit.NewInMemoryStore()
		consents := consentstore.NewInMemoryStore()
		supervisors := supervisor.NewInMemoryStore()
		if cfg.Server.Environment != "production" {
			if err := seed.New(units, employees, consents, supervisors, log).SeedAll(ctx); err != nil {
				return nil, err
			}
		}
		out.employees = employees
		out.units = units
		out.consents = consents
		out.events = clockevent.NewInMemoryStore()
		out.supervisors = supervisors
		out.audit = auditmemory.NewInMemoryStore()
	}

	objects, err := openObjects(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("evidence store: %w", err)
	}
	if objects == nil {
		log.Warn("EVIDENCE_BUCKET_URL and EVIDENCE_DIR not set; evidence is kept in memory")
		objects = objectstore.NewMemory()
	}
	out.objects = objects
	return out, nil
}

// openObjects returns nil when no evidence location is configured.
func openObjects(ctx context.Context, cfg config.Config) (*objectstore.Bucket, error) {
	switch {
	case cfg.Attendance.EvidenceBucketURL != "":
		return objectstore.Open(ctx, cfg.Attendance.EvidenceBucketURL)
	case cfg.Attendance.EvidenceDir != "":
		return objectstore.NewFilesystem(cfg.Attendance.EvidenceDir)
	default:
		return nil, nil
	}
}

func evidenceBackend(cfg config.Config) string {
	switch {
	case cfg.Attendance.EvidenceBucketURL != "":
		scheme, _, _ := strings.Cut(cfg.Attendance.EvidenceBucketURL, "://")
		return scheme
	case cfg.Attendance.EvidenceDir != "":
		return "file"
	default:
		return "mem"
	}
}

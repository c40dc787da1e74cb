// Package identity resolves a presented credential to an employee and, once
// the device location is known, to the work unit the event belongs to.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"ponto/internal/attendance/models"
	"ponto/internal/platform/config"
	"ponto/pkg/platform/privacy"
	"ponto/pkg/platform/sentinel"
)

// Mode is how the credential was recognized.
type Mode string

const (
	ModeUnitBound Mode = "unit_bound"
	ModeUniversal Mode = "universal"
)

// Identity is the outcome of credential resolution. Unit is fixed for
// unit-bound credentials; universal credentials carry Candidates instead.
type Identity struct {
	Mode       Mode
	Employee   *models.Employee
	Match      *Match
	Unit       *models.WorkUnit
	Candidates []*models.WorkUnit
	// CredentialRef is the badge code, or models.CredentialUniversal.
	CredentialRef string
	LegalID       string
}

type Option func(*Resolver)

func WithFinder(f Finder) Option {
	return func(r *Resolver) {
		if f != nil {
			r.finder = f
		}
	}
}

func WithTieBreak(tb config.TieBreak) Option {
	return func(r *Resolver) {
		if tb != "" {
			r.tieBreak = tb
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver implements both credential modes.
type Resolver struct {
	employees EmployeeStore
	units     UnitStore
	finder    Finder
	universal *regexp.Regexp
	tieBreak  config.TieBreak
	logger    *slog.Logger
}

// New builds a Resolver. universalPattern is the format predicate for the
// organization-wide code.
func New(employees EmployeeStore, units UnitStore, universalPattern string, opts ...Option) (*Resolver, error) {
	if employees == nil || units == nil {
		return nil, errors.New("identity: employee and unit stores are required")
	}
	re, err := regexp.Compile(universalPattern)
	if err != nil {
		return nil, fmt.Errorf("identity: universal code pattern: %w", err)
	}
	r := &Resolver{
		employees: employees,
		units:     units,
		universal: re,
		tieBreak:  config.TieBreakListOrder,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.finder == nil {
		r.finder = DefaultFinder(employees)
	}
	return r, nil
}

// IsUniversal reports whether code is the organization-wide credential.
func (r *Resolver) IsUniversal(code string) bool {
	return r.universal.MatchString(code)
}

// Resolve identifies the employee behind a credential. It never checks
// consent or geofences.
func (r *Resolver) Resolve(ctx context.Context, code, rawLegalID string) (*Identity, error) {
	if r.IsUniversal(code) {
		return r.resolveUniversal(ctx, rawLegalID)
	}
	return r.resolveUnitBound(ctx, code, rawLegalID)
}

func (r *Resolver) resolveUnitBound(ctx context.Context, code, rawLegalID string) (*Identity, error) {
	cred, err := r.units.FindCredential(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) || (err == nil && !cred.Active) {
		return nil, models.Reject(models.KindInvalidCredential, "access code is invalid or inactive", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}

	unit, err := r.units.FindByID(ctx, cred.UnitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.Reject(models.KindInvalidCredential, "access code is not bound to an existing unit", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find unit: %w", err)
	}

	match, canonical, err := r.findEmployee(ctx, rawLegalID)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Mode:          ModeUnitBound,
		Employee:      match.Employee,
		Match:         match,
		Unit:          unit,
		CredentialRef: cred.Code,
		LegalID:       canonical,
	}, nil
}

func (r *Resolver) resolveUniversal(ctx context.Context, rawLegalID string) (*Identity, error) {
	match, canonical, err := r.findEmployee(ctx, rawLegalID)
	if err != nil {
		return nil, err
	}
	emp := match.Employee

	ids := emp.CandidateUnits()
	if len(ids) == 0 {
		return nil, models.Reject(models.KindNoUnitAssigned,
			"no work unit is assigned to you; contact HR", map[string]any{"employeeId": emp.ID.String()})
	}
	candidates, err := r.units.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find permitted units: %w", err)
	}
	if len(candidates) == 0 {
		return nil, models.Reject(models.KindNoUnitAssigned,
			"no work unit is assigned to you; contact HR", map[string]any{"employeeId": emp.ID.String()})
	}

	return &Identity{
		Mode:          ModeUniversal,
		Employee:      emp,
		Match:         match,
		Candidates:    candidates,
		CredentialRef: models.CredentialUniversal,
		LegalID:       canonical,
	}, nil
}

func (r *Resolver) findEmployee(ctx context.Context, rawLegalID string) (*Match, string, error) {
	if rawLegalID == "" {
		return nil, "", models.Reject(models.KindMissingIdentity, "your CPF is required with this access code", nil)
	}
	canonical, ok := NormalizeLegalID(rawLegalID)
	if !ok {
		return nil, "", models.Reject(models.KindInvalidIdentity, "CPF must have 11 digits", nil)
	}

	match, err := r.finder.Find(ctx, canonical)
	if errors.Is(err, sentinel.ErrNotFound) {
		if r.logger != nil {
			r.logger.InfoContext(ctx, "no employee for legal id", "legal_id", privacy.MaskLegalID(canonical))
		}
		return nil, "", models.Reject(models.KindIdentityNotFound, "no employee found for this CPF", nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("find employee: %w", err)
	}
	return match, canonical, nil
}

// Repair rewrites a non-canonical stored legal ID. It is a separate side
// effect so lookups stay read-only; callers treat failure as non-fatal.
func (r *Resolver) Repair(ctx context.Context, m *Match) error {
	if !m.NeedsRepair() {
		return nil
	}
	if err := r.employees.UpdateLegalID(ctx, m.Employee.ID, m.Canonical); err != nil {
		return fmt.Errorf("repair legal id for %s: %w", m.Employee.ID, err)
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "legal id normalized", "employee_id", m.Employee.ID.String())
	}
	return nil
}

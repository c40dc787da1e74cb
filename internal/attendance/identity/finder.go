package identity

import (
	"context"
	"errors"
	"fmt"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// Match is an employee found by legal ID together with the value as stored.
type Match struct {
	Employee  *models.Employee
	Canonical string
	Stored    string
}

// NeedsRepair reports whether the stored legal ID differs from the canonical form.
func (m *Match) NeedsRepair() bool {
	return m != nil && m.Stored != m.Canonical
}

// ExactFinder uses the indexed equality lookup.
type ExactFinder struct {
	store EmployeeStore
}

func NewExactFinder(store EmployeeStore) *ExactFinder {
	return &ExactFinder{store: store}
}

func (f *ExactFinder) Find(ctx context.Context, canonical string) (*Match, error) {
	emp, err := f.store.FindByLegalID(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return &Match{Employee: emp, Canonical: canonical, Stored: emp.LegalID}, nil
}

// ScanFinder walks every stored legal ID and compares canonical forms. It
// exists for rows written before input was normalized and can be dropped
// once the column is clean.
type ScanFinder struct {
	store EmployeeStore
}

func NewScanFinder(store EmployeeStore) *ScanFinder {
	return &ScanFinder{store: store}
}

func (f *ScanFinder) Find(ctx context.Context, canonical string) (*Match, error) {
	var (
		hitID  models.EmployeeID
		stored string
	)
	err := f.store.ScanLegalIDs(ctx, func(id models.EmployeeID, legalID string) bool {
		if storedForm(legalID) == canonical {
			hitID, stored = id, legalID
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan legal ids: %w", err)
	}
	if hitID == "" {
		return nil, sentinel.ErrNotFound
	}
	emp, err := f.store.FindByID(ctx, hitID)
	if err != nil {
		return nil, err
	}
	return &Match{Employee: emp, Canonical: canonical, Stored: stored}, nil
}

// ChainFinder tries each finder in order and returns the first hit.
type ChainFinder []Finder

func (c ChainFinder) Find(ctx context.Context, canonical string) (*Match, error) {
	for _, f := range c {
		m, err := f.Find(ctx, canonical)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
	}
	return nil, sentinel.ErrNotFound
}

// DefaultFinder is the exact lookup followed by the normalized scan.
func DefaultFinder(store EmployeeStore) Finder {
	return ChainFinder{NewExactFinder(store), NewScanFinder(store)}
}

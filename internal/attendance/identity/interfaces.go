package identity

import (
	"context"

	"ponto/internal/attendance/models"
)

// EmployeeStore is the employee persistence the resolver reads.
// Error Contract: Find methods return sentinel.ErrNotFound when nothing matches.
type EmployeeStore interface {
	FindByID(ctx context.Context, id models.EmployeeID) (*models.Employee, error)
	FindByLegalID(ctx context.Context, legalID string) (*models.Employee, error)
	ScanLegalIDs(ctx context.Context, fn func(id models.EmployeeID, legalID string) bool) error
	UpdateLegalID(ctx context.Context, id models.EmployeeID, legalID string) error
}

// UnitStore is the work-unit and credential persistence the resolver reads.
// Error Contract: FindByID and FindCredential return sentinel.ErrNotFound;
// FindByIDs skips unknown IDs and preserves the requested order.
type UnitStore interface {
	FindByID(ctx context.Context, id models.UnitID) (*models.WorkUnit, error)
	FindByIDs(ctx context.Context, ids []models.UnitID) ([]*models.WorkUnit, error)
	FindCredential(ctx context.Context, code string) (*models.AccessCredential, error)
}

// Finder locates an employee by canonical legal ID.
// Returns sentinel.ErrNotFound when no employee matches.
type Finder interface {
	Find(ctx context.Context, canonical string) (*Match, error)
}

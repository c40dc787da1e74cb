package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// PostgresStore persists employees in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectEmployee = `
	SELECT id, legal_id, name, COALESCE(primary_unit_id, ''), group_id
	FROM employees
`

func (s *PostgresStore) Save(ctx context.Context, e *models.Employee) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var primary *string
	if e.PrimaryUnitID != "" {
		p := string(e.PrimaryUnitID)
		primary = &p
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO employees (id, legal_id, name, primary_unit_id, group_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			legal_id = EXCLUDED.legal_id,
			name = EXCLUDED.name,
			primary_unit_id = EXCLUDED.primary_unit_id,
			group_id = EXCLUDED.group_id
	`, string(e.ID), e.LegalID, e.Name, primary, e.GroupID)
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM employee_units WHERE employee_id = $1`, string(e.ID)); err != nil {
		return fmt.Errorf("clear employee units: %w", err)
	}
	for i, unitID := range e.PermittedUnitIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO employee_units (employee_id, unit_id, position) VALUES ($1, $2, $3)
		`, string(e.ID), string(unitID), i)
		if err != nil {
			return fmt.Errorf("save employee unit: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.EmployeeID) (*models.Employee, error) {
	return s.findOne(ctx, selectEmployee+` WHERE id = $1`, string(id))
}

// FindByLegalID matches the stored value exactly using the legal_id index.
func (s *PostgresStore) FindByLegalID(ctx context.Context, legalID string) (*models.Employee, error) {
	return s.findOne(ctx, selectEmployee+` WHERE legal_id = $1 ORDER BY id LIMIT 1`, legalID)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Employee, error) {
	var e models.Employee
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&e.ID, &e.LegalID, &e.Name, &e.PrimaryUnitID, &e.GroupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT unit_id FROM employee_units WHERE employee_id = $1 ORDER BY position
	`, string(e.ID))
	if err != nil {
		return nil, fmt.Errorf("list employee units: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var unitID models.UnitID
		if err := rows.Scan(&unitID); err != nil {
			return nil, fmt.Errorf("scan employee unit: %w", err)
		}
		e.PermittedUnitIDs = append(e.PermittedUnitIDs, unitID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employee units: %w", err)
	}
	return &e, nil
}

// ScanLegalIDs streams (id, legal_id) pairs until fn returns false.
func (s *PostgresStore) ScanLegalIDs(ctx context.Context, fn func(id models.EmployeeID, legalID string) bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, legal_id FROM employees ORDER BY id`)
	if err != nil {
		return fmt.Errorf("scan employees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id      models.EmployeeID
			legalID string
		)
		if err := rows.Scan(&id, &legalID); err != nil {
			return fmt.Errorf("scan employee: %w", err)
		}
		if !fn(id, legalID) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate employees: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLegalID(ctx context.Context, id models.EmployeeID, legalID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE employees SET legal_id = $2 WHERE id = $1`, string(id), legalID)
	if err != nil {
		return fmt.Errorf("update legal id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

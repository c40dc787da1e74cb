package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// PostgresStore persists consent records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, employeeID models.EmployeeID) (*models.ConsentRecord, error) {
	var rec models.ConsentRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT employee_id, acknowledged_at, ip, user_agent
		FROM consent_records
		WHERE employee_id = $1
	`, string(employeeID)).Scan(&rec.EmployeeID, &rec.AcknowledgedAt, &rec.IP, &rec.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec models.ConsentRecord) (*models.ConsentRecord, bool, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO consent_records (employee_id, acknowledged_at, ip, user_agent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id) DO NOTHING
		RETURNING employee_id
	`, string(rec.EmployeeID), rec.AcknowledgedAt, rec.IP, rec.UserAgent).Scan(new(string))
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := s.Find(ctx, rec.EmployeeID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("save consent: %w", err)
	}
	return &rec, true, nil
}

package supervisor

import (
	"context"
	"database/sql"
	"fmt"

	"ponto/internal/attendance/models"
)

// PostgresStore reads group supervisors from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, sup models.Supervisor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_supervisors (group_id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (group_id, email) DO UPDATE SET name = EXCLUDED.name
	`, sup.GroupID, sup.Name, sup.Email)
	if err != nil {
		return fmt.Errorf("save supervisor: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID string) ([]models.Supervisor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, name, email FROM group_supervisors WHERE group_id = $1 ORDER BY email
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	defer rows.Close()

	var out []models.Supervisor
	for rows.Next() {
		var sup models.Supervisor
		if err := rows.Scan(&sup.GroupID, &sup.Name, &sup.Email); err != nil {
			return nil, fmt.Errorf("scan supervisor: %w", err)
		}
		out = append(out, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supervisors: %w", err)
	}
	return out, nil
}

package unit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// PostgresStore persists work units and access credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (*models.WorkUnit, error) {
	var u models.WorkUnit
	var lat, lng, radiusM sql.NullFloat64
	if err := row.Scan(&u.ID, &u.Name, &lat, &lng, &radiusM); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid && radiusM.Valid {
		u.Fence = &models.Fence{Lat: lat.Float64, Lng: lng.Float64, RadiusMeters: radiusM.Float64}
	}
	return &u, nil
}

func (s *PostgresStore) SaveUnit(ctx context.Context, u *models.WorkUnit) error {
	var lat, lng, radius *float64
	if u.Fence != nil {
		lat, lng, radius = &u.Fence.Lat, &u.Fence.Lng, &u.Fence.RadiusMeters
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_units (id, name, fence_lat, fence_lng, fence_radius_m)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			fence_lat = EXCLUDED.fence_lat,
			fence_lng = EXCLUDED.fence_lng,
			fence_radius_m = EXCLUDED.fence_radius_m
	`, string(u.ID), u.Name, lat, lng, radius)
	if err != nil {
		return fmt.Errorf("save work unit: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCredential(ctx context.Context, c *models.AccessCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_credentials (code, unit_id, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET unit_id = EXCLUDED.unit_id, active = EXCLUDED.active
	`, c.Code, string(c.UnitID), c.Active)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.UnitID) (*models.WorkUnit, error) {
	u, err := scanUnit(s.db.QueryRowContext(ctx, `
		SELECT id, name, fence_lat, fence_lng, fence_radius_m FROM work_units WHERE id = $1
	`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find work unit: %w", err)
	}
	return u, nil
}

// FindByIDs returns the known units in the order of ids. Unknown IDs are skipped.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []models.UnitID) ([]*models.WorkUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fence_lat, fence_lng, fence_radius_m FROM work_units WHERE id = ANY($1)
	`, raw)
	if err != nil {
		return nil, fmt.Errorf("find work units: %w", err)
	}
	defer rows.Close()

	byID := make(map[models.UnitID]*models.WorkUnit, len(ids))
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work unit: %w", err)
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work units: %w", err)
	}

	out := make([]*models.WorkUnit, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *PostgresStore) FindCredential(ctx context.Context, code string) (*models.AccessCredential, error) {
	var c models.AccessCredential
	err := s.db.QueryRowContext(ctx, `
		SELECT code, unit_id, active FROM access_credentials WHERE code = $1
	`, code).Scan(&c.Code, &c.UnitID, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &c, nil
}

package clockevent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/models"
	"ponto/internal/platform/database"
	"ponto/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists clock events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Commit takes a transaction-scoped advisory lock on the key, lets build
// re-check duplication on the same transaction, then inserts the event.
// The unique daily index turns any remaining race into sentinel.ErrConflict.
func (s *PostgresStore) Commit(ctx context.Context, key models.DedupKey, build BuildFunc) (*models.ClockEvent, error) {
	var committed *models.ClockEvent
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
			return fmt.Errorf("lock dedup key: %w", err)
		}
		txStore := &PostgresStore{tx: tx}
		ev, err := build(ctx, txStore)
		if err != nil {
			return err
		}
		if err := txStore.insert(ctx, ev); err != nil {
			return err
		}
		committed = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *PostgresStore) insert(ctx context.Context, e *models.ClockEvent) error {
	var employeeID *string
	if e.EmployeeID != "" {
		id := string(e.EmployeeID)
		employeeID = &id
	}
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO clock_events (
			id, employee_id, unit_id, event_type, occurred_at, local_day,
			lat, lng, accuracy_m, evidence_ref,
			ip, user_agent, device_id, device_label, device_fingerprint,
			legal_id_snapshot, credential_ref, digest, protocol_code
		)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		string(e.ID), employeeID, string(e.UnitID), string(e.Type), e.Timestamp, e.LocalDay,
		e.Location.Lat, e.Location.Lng, e.Location.Accuracy, e.EvidenceRef,
		e.Device.IP, e.Device.UserAgent, e.Device.DeviceID, e.Device.Label, e.Device.Fingerprint,
		e.LegalIDSnapshot, e.CredentialRef, e.Digest, e.ProtocolCode,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert clock event: %w", err)
	}
	return nil
}

const selectEvent = `
	SELECT id, COALESCE(employee_id, ''), unit_id, event_type, occurred_at, to_char(local_day, 'YYYY-MM-DD'),
		   lat, lng, accuracy_m, evidence_ref,
		   ip, user_agent, device_id, device_label, device_fingerprint,
		   legal_id_snapshot, credential_ref, digest, protocol_code
	FROM clock_events
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.ClockEvent, error) {
	var (
		e        models.ClockEvent
		accuracy sql.NullFloat64
	)
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.UnitID, &e.Type, &e.Timestamp, &e.LocalDay,
		&e.Location.Lat, &e.Location.Lng, &accuracy, &e.EvidenceRef,
		&e.Device.IP, &e.Device.UserAgent, &e.Device.DeviceID, &e.Device.Label, &e.Device.Fingerprint,
		&e.LegalIDSnapshot, &e.CredentialRef, &e.Digest, &e.ProtocolCode,
	)
	if err != nil {
		return nil, err
	}
	if accuracy.Valid {
		e.Location.Accuracy = &accuracy.Float64
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

func (s *PostgresStore) LatestSince(ctx context.Context, key models.DedupKey, since time.Time) (*models.ClockEvent, error) {
	e, err := scanEvent(s.execer().QueryRowContext(ctx, selectEvent+`
		WHERE employee_id = $1 AND unit_id = $2 AND event_type = $3 AND occurred_at >= $4
		ORDER BY occurred_at DESC
		LIMIT 1
	`, string(key.EmployeeID), string(key.UnitID), string(key.Type), since))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest clock event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ExistsBetween(ctx context.Context, key models.DedupKey, from, to time.Time) (bool, error) {
	var exists bool
	err := s.execer().QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clock_events
			WHERE employee_id = $1 AND unit_id = $2 AND event_type = $3
			  AND occurred_at >= $4 AND occurred_at < $5
		)
	`, string(key.EmployeeID), string(key.UnitID), string(key.Type), from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check clock events: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.EventID) (*models.ClockEvent, error) {
	e, err := scanEvent(s.execer().QueryRowContext(ctx, selectEvent+` WHERE id = $1`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find clock event: %w", err)
	}
	return e, nil
}

// FindByProtocolCode returns every event carrying code, oldest first.
func (s *PostgresStore) FindByProtocolCode(ctx context.Context, code string) ([]*models.ClockEvent, error) {
	rows, err := s.execer().QueryContext(ctx, selectEvent+`
		WHERE protocol_code = $1 ORDER BY occurred_at
	`, code)
	if err != nil {
		return nil, fmt.Errorf("find clock events by protocol: %w", err)
	}
	defer rows.Close()

	var out []*models.ClockEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clock event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clock events: %w", err)
	}
	return out, nil
}

var _ dedup.Reader = (*PostgresStore)(nil)

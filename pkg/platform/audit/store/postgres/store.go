package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	audit "ponto/pkg/platform/audit"

	"github.com/google/uuid"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT timestamp, action, resource_type, resource_id, success, reason,
		   actor_id, actor_ip, actor_user_agent, device_id, request_id, metadata
	FROM audit_events
`

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, action, resource_type, resource_id, success, reason,
			actor_id, actor_ip, actor_user_agent, device_id, request_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		event.Success,
		event.Reason,
		event.ActorID,
		event.ActorIP,
		event.ActorUserAgent,
		event.DeviceID,
		event.RequestID,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByResource(ctx context.Context, resourceType, resourceID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC
	`, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			metadata []byte
		)
		err := rows.Scan(
			&event.Timestamp,
			&event.Action,
			&event.ResourceType,
			&event.ResourceID,
			&event.Success,
			&event.Reason,
			&event.ActorID,
			&event.ActorIP,
			&event.ActorUserAgent,
			&event.DeviceID,
			&event.RequestID,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

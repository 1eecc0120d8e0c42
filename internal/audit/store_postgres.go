package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "legajo/pkg/domain"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         UUID PRIMARY KEY,
	tabla      VARCHAR(64) NOT NULL,
	registro   VARCHAR(64) NOT NULL,
	accion     VARCHAR(16) NOT NULL,
	cambios    JSONB NOT NULL,
	actor      VARCHAR(128) NOT NULL DEFAULT '',
	request_id VARCHAR(64) NOT NULL DEFAULT '',
	fecha      TIMESTAMPTZ NOT NULL,
	seq        BIGSERIAL
);
ALTER TABLE audit_log ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS audit_log_registro_idx ON audit_log (tabla, registro, fecha DESC, seq DESC);
`

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit_log table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, tabla, registro, accion, cambios, actor, request_id, fecha)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(event.ID), event.Table, event.RecordID, string(event.Action), changes,
		event.Actor, event.RequestID, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByRecord returns the record's events, most recent first.
func (s *PostgresStore) ListByRecord(ctx context.Context, table, recordID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tabla, registro, accion, cambios, actor, request_id, fecha
		FROM audit_log WHERE tabla = $1 AND registro = $2
		ORDER BY fecha DESC, seq DESC`, table, recordID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list audit events: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Last(ctx context.Context, table, recordID string, action Action) (Event, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tabla, registro, accion, cambios, actor, request_id, fecha
		FROM audit_log WHERE tabla = $1 AND registro = $2 AND accion = $3
		ORDER BY fecha DESC, seq DESC LIMIT 1`, table, recordID, string(action))
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, false, nil
		}
		return Event{}, false, fmt.Errorf("find last audit event: %w", err)
	}
	return event, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		event   Event
		rawID   uuid.UUID
		action  string
		changes []byte
	)
	if err := row.Scan(&rawID, &event.Table, &event.RecordID, &action, &changes,
		&event.Actor, &event.RequestID, &event.Timestamp); err != nil {
		return Event{}, err
	}
	event.ID = id.AuditEventID(rawID)
	event.Action = Action(action)
	event.Timestamp = event.Timestamp.UTC()
	if err := json.Unmarshal(changes, &event.Changes); err != nil {
		return Event{}, fmt.Errorf("unmarshal audit changes: %w", err)
	}
	return event, nil
}

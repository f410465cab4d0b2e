package journal

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS connection_events (
	id          UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	channel     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	from_state  TEXT NOT NULL DEFAULT '',
	to_state    TEXT NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
)`

const indexSQL = `
CREATE INDEX IF NOT EXISTS connection_events_occurred_at_idx
	ON connection_events (occurred_at)`

const insertSQL = `
	INSERT INTO connection_events (id, occurred_at, channel, kind, from_state, to_state, attempts, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
`

// EnsureSchema creates the connection_events table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create connection_events: %w", err)
	}
	if _, err := db.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create connection_events index: %w", err)
	}
	return nil
}

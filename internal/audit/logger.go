// Package audit persists and queries the append-only audit trail of
// authorization-relevant mutations. Entries are never updated or deleted.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SystemActorID attributes mutations performed without an authenticated
// actor, such as seeding or background jobs.
const SystemActorID int64 = 0

// Entry represents a record stored in audit_logs.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Logger writes records into audit_logs. Record takes the caller's
// transaction so the entry commits atomically with the mutation it
// describes.
type Logger struct{}

// NewLogger returns a new Logger.
func NewLogger() *Logger {
	return &Logger{}
}

// Record persists the log entry within tx.
func (l *Logger) Record(ctx context.Context, tx pgx.Tx, entry Entry) error {
	if l == nil {
		return errors.New("audit: logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit: entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var at any
	if !entry.At.IsZero() {
		at = entry.At
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, at)
	return err
}

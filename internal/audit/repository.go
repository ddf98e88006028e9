// Package audit records connection lifecycle events (connect,
// disconnect) to Postgres for post-hoc diagnosis of connection churn.
// It is strictly a write-only observability sink: the broker never
// reads it back, so it cannot become a form of subscription
// persistence across reconnects (spec §1 Non-goals).
package audit

import (
	"context"
	"fmt"
	"time"

	"hashbroker/internal/database"
)

// Event is one connection lifecycle occurrence.
type Event struct {
	ClientID   uint64
	SessionID  string
	Kind       string // "connect" or "disconnect"
	OccurredAt time.Time
}

const (
	// EventConnect records a session.Handle registering a new client.
	EventConnect = "connect"
	// EventDisconnect records a session emitting its terminal Disconnect.
	EventDisconnect = "disconnect"
)

// Repository persists connection events.
type Repository struct {
	db *database.DB
}

// NewRepository creates a connection-event repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts a single connection event.
func (r *Repository) Record(ctx context.Context, clientID uint64, sessionID, kind string) error {
	query := `
		INSERT INTO connection_events (client_id, session_id, event, occurred_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query, clientID, sessionID, kind, time.Now())
	if err != nil {
		return fmt.Errorf("audit: record %s for client %d: %w", kind, clientID, err)
	}

	return nil
}

// Recent retrieves the most recent connection events, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT client_id, session_id, event, occurred_at
		FROM connection_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ClientID, &e.SessionID, &e.Kind, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, nil
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

// PostgresStateStore persists the transaction state log. Appends for
// the same transaction serialize on an advisory lock; duplicates are
// absorbed by the unique index on (transaction_id, event_type,
// timestamp).
type PostgresStateStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStateStore creates a state store over the transaction
// tables.
func NewPostgresStateStore(pool *pgxpool.Pool) *PostgresStateStore {
	return &PostgresStateStore{pool: pool}
}

// Append records the event and advances current_state. Returns false
// when the exact event was already recorded.
func (s *PostgresStateStore) Append(ctx context.Context, e *event.Envelope) (bool, error) {
	payload, err := e.Marshal()
	if err != nil {
		return false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin state transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.TransactionID); err != nil {
		return false, fmt.Errorf("failed to lock transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO transaction_events (transaction_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, event_type, created_at) DO NOTHING
	`, e.TransactionID, e.EventType, payload, e.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to append event: %w", err)
	}

	inserted := tag.RowsAffected() > 0
	if inserted {
		if _, err := tx.Exec(ctx, `
			INSERT INTO transaction_state (transaction_id, current_state, created_at)
			VALUES ($1, $2, now())
			ON CONFLICT (transaction_id)
			DO UPDATE SET current_state = EXCLUDED.current_state
		`, e.TransactionID, e.EventType); err != nil {
			return false, fmt.Errorf("failed to update current state: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit state transaction: %w", err)
	}
	return inserted, nil
}

// Log returns the recorded events of a transaction in append order.
func (s *PostgresStateStore) Log(ctx context.Context, transactionID string) ([]LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_type, event_data, created_at
		FROM transaction_events
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction events: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		if err := rows.Scan(&entry.EventType, &entry.Payload, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction events: %w", err)
	}

	return entries, nil
}

// State returns the transaction's current state and event list.
func (s *PostgresStateStore) State(ctx context.Context, transactionID string) (*TransactionState, error) {
	var currentState string
	err := s.pool.QueryRow(ctx, `
		SELECT current_state FROM transaction_state WHERE transaction_id = $1
	`, transactionID).Scan(&currentState)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction state: %w", err)
	}

	events, err := s.Log(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	return &TransactionState{
		TransactionID: transactionID,
		CurrentState:  currentState,
		Events:        events,
	}, nil
}

// HasEvent reports whether the log contains an event of the given type.
func (s *PostgresStateStore) HasEvent(ctx context.Context, transactionID, eventType string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transaction_events
			WHERE transaction_id = $1 AND event_type = $2
		)
	`, transactionID, eventType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}
	return exists, nil
}

// MarkCompensationEmitted flips the compensation flag. Returns true
// only for the caller that performed the flip.
func (s *PostgresStateStore) MarkCompensationEmitted(ctx context.Context, transactionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transaction_state
		SET compensation_emitted = true
		WHERE transaction_id = $1 AND compensation_emitted = false
	`, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark compensation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ StateStore = (*PostgresStateStore)(nil)

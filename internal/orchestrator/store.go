// Package orchestrator drives the booking saga: it owns the
// per-transaction state log, finalizes successful bookings, and decides
// when compensation is owed.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

// ErrTransactionNotFound is returned when no events exist for a
// transaction.
var ErrTransactionNotFound = errors.New("transaction not found")

// LogEntry is one recorded event of a transaction.
type LogEntry struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionState is the status view of a transaction: its current
// state and the full recorded event list.
type TransactionState struct {
	TransactionID string     `json:"transaction_id"`
	CurrentState  string     `json:"current_state"`
	Events        []LogEntry `json:"events"`
}

// StateStore is the orchestrator-owned transaction state log.
//
// Append records an event and advances current_state; it deduplicates
// on (transaction_id, event_type, timestamp) and reports whether the
// event was newly inserted, which is how replayed deliveries are
// detected. Appends for the same transaction serialize.
type StateStore interface {
	Append(ctx context.Context, e *event.Envelope) (bool, error)
	Log(ctx context.Context, transactionID string) ([]LogEntry, error)
	State(ctx context.Context, transactionID string) (*TransactionState, error)
	HasEvent(ctx context.Context, transactionID, eventType string) (bool, error)
	// MarkCompensationEmitted flips the transaction's compensation flag
	// and reports whether this call was the first to do so.
	MarkCompensationEmitted(ctx context.Context, transactionID string) (bool, error)
}

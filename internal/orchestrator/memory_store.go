package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

type memoryTransaction struct {
	currentState        string
	entries             []LogEntry
	seen                map[string]bool
	compensationEmitted bool
}

// MemoryStateStore is an in-process state log with the same dedup and
// serialization contract as the Postgres store. Used by tests and
// single-process mode.
type MemoryStateStore struct {
	mu           sync.Mutex
	transactions map[string]*memoryTransaction
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{transactions: make(map[string]*memoryTransaction)}
}

func dedupKey(e *event.Envelope) string {
	return fmt.Sprintf("%s|%d", e.EventType, e.Timestamp.UnixNano())
}

// Append records the event, deduplicating replays.
func (s *MemoryStateStore) Append(_ context.Context, e *event.Envelope) (bool, error) {
	payload, err := e.Marshal()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[e.TransactionID]
	if !ok {
		tx = &memoryTransaction{seen: make(map[string]bool)}
		s.transactions[e.TransactionID] = tx
	}

	key := dedupKey(e)
	if tx.seen[key] {
		return false, nil
	}
	tx.seen[key] = true

	tx.entries = append(tx.entries, LogEntry{
		EventType: e.EventType,
		Payload:   payload,
		Timestamp: e.Timestamp,
	})
	tx.currentState = e.EventType
	return true, nil
}

// Log returns the recorded events in append order.
func (s *MemoryStateStore) Log(_ context.Context, transactionID string) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, nil
	}
	out := make([]LogEntry, len(tx.entries))
	copy(out, tx.entries)
	return out, nil
}

// State returns the transaction's current state and events.
func (s *MemoryStateStore) State(_ context.Context, transactionID string) (*TransactionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	events := make([]LogEntry, len(tx.entries))
	copy(events, tx.entries)
	return &TransactionState{
		TransactionID: transactionID,
		CurrentState:  tx.currentState,
		Events:        events,
	}, nil
}

// HasEvent reports whether the log contains an event of the given type.
func (s *MemoryStateStore) HasEvent(_ context.Context, transactionID, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return false, nil
	}
	for _, entry := range tx.entries {
		if entry.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

// MarkCompensationEmitted flips the compensation flag once.
func (s *MemoryStateStore) MarkCompensationEmitted(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		tx = &memoryTransaction{seen: make(map[string]bool)}
		s.transactions[transactionID] = tx
	}
	if tx.compensationEmitted {
		return false, nil
	}
	tx.compensationEmitted = true
	return true, nil
}

var _ StateStore = (*MemoryStateStore)(nil)

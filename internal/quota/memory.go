package quota

import (
	"context"
	"sync"
)

type allocation struct {
	date     string
	released bool
}

// MemoryArbiter keeps counters and allocations in process under a
// single mutex, which serializes acquire and release the same way the
// database transaction does. Used by tests and single-process mode.
type MemoryArbiter struct {
	mu       sync.Mutex
	maxDaily int
	used     map[string]int
	allocs   map[string]*allocation
}

// NewMemoryArbiter creates an in-memory arbiter with the given cap.
func NewMemoryArbiter(maxDaily int) *MemoryArbiter {
	return &MemoryArbiter{
		maxDaily: maxDaily,
		used:     make(map[string]int),
		allocs:   make(map[string]*allocation),
	}
}

// Acquire claims a slot under the mutex.
func (a *MemoryArbiter) Acquire(_ context.Context, transactionID, date string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if alloc, ok := a.allocs[transactionID]; ok && !alloc.released {
		return true, nil
	}

	if a.used[date] >= a.maxDaily {
		return false, nil
	}

	a.used[date]++
	a.allocs[transactionID] = &allocation{date: date}
	return true, nil
}

// Release frees the transaction's active allocation, if any.
func (a *MemoryArbiter) Release(_ context.Context, transactionID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, ok := a.allocs[transactionID]
	if !ok || alloc.released {
		return true, nil
	}

	alloc.released = true
	if a.used[alloc.date] > 0 {
		a.used[alloc.date]--
	}
	return true, nil
}

// Used returns the current counter for a date.
func (a *MemoryArbiter) Used(date string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[date]
}

var _ Arbiter = (*MemoryArbiter)(nil)

package quota

import "context"

// Arbiter manages daily discount slot allocations.
//
// Acquire claims a slot for the transaction on the given civil date.
// It is idempotent: a transaction holding an active allocation
// re-acquires successfully without consuming another slot. It returns
// false when the day's cap is reached. Release undoes an allocation
// and frees the slot; releasing a transaction with no active
// allocation is a no-op that still succeeds.
//
// Both operations are atomic per date: under concurrent acquires the
// per-day count never exceeds the cap.
type Arbiter interface {
	Acquire(ctx context.Context, transactionID, date string) (bool, error)
	Release(ctx context.Context, transactionID string) (bool, error)
}

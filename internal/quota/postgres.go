package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArbiter enforces the daily cap with a conditional UPDATE on
// the quota_counters row. Zero rows updated means the cap is reached;
// the row update serializes concurrent acquires on the same date.
type PostgresArbiter struct {
	pool     *pgxpool.Pool
	maxDaily int
}

// NewPostgresArbiter creates an arbiter over the quota tables.
func NewPostgresArbiter(pool *pgxpool.Pool, maxDaily int) *PostgresArbiter {
	return &PostgresArbiter{pool: pool, maxDaily: maxDaily}
}

// Acquire claims a discount slot for the transaction on the given date.
func (a *PostgresArbiter) Acquire(ctx context.Context, transactionID, date string) (bool, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin quota transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent acquires of the same transaction so a
	// replayed event cannot double-claim between the check and the
	// insert below.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, transactionID); err != nil {
		return false, fmt.Errorf("failed to lock transaction: %w", err)
	}

	// Idempotent replay: an active allocation means the slot is already
	// held by this transaction.
	var existingID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM quota_allocations
		WHERE transaction_id = $1 AND released = false
	`, transactionID).Scan(&existingID)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("failed to commit quota transaction: %w", err)
		}
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// fall through to claim a new slot
	default:
		return false, fmt.Errorf("failed to check existing allocation: %w", err)
	}

	// Seed the day's counter row if it does not exist yet.
	if _, err := tx.Exec(ctx, `
		INSERT INTO quota_counters (date, used)
		VALUES ($1, 0)
		ON CONFLICT (date) DO NOTHING
	`, date); err != nil {
		return false, fmt.Errorf("failed to seed quota counter: %w", err)
	}

	// The conditional increment is the cap enforcement: zero rows
	// updated means used has reached the cap.
	var used int
	err = tx.QueryRow(ctx, `
		UPDATE quota_counters
		SET used = used + 1
		WHERE date = $1 AND used < $2
		RETURNING used
	`, date, a.maxDaily).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to increment quota counter: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO quota_allocations (id, transaction_id, date, released)
		VALUES ($1, $2, $3, false)
	`, uuid.NewString(), transactionID, date); err != nil {
		return false, fmt.Errorf("failed to record allocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit quota transaction: %w", err)
	}
	return true, nil
}

// Release marks the transaction's active allocation released and frees
// the slot. Releasing with no active allocation is a successful no-op.
func (a *PostgresArbiter) Release(ctx context.Context, transactionID string) (bool, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin quota transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var date string
	err = tx.QueryRow(ctx, `
		UPDATE quota_allocations
		SET released = true
		WHERE transaction_id = $1 AND released = false
		RETURNING date::text
	`, transactionID).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("failed to commit quota transaction: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to release allocation: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE quota_counters
		SET used = GREATEST(used - 1, 0)
		WHERE date = $1
	`, date); err != nil {
		return false, fmt.Errorf("failed to decrement quota counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit quota transaction: %w", err)
	}
	return true, nil
}

// Used returns the current counter for a date. Zero if the date has no
// counter row yet.
func (a *PostgresArbiter) Used(ctx context.Context, date string) (int, error) {
	var used int
	err := a.pool.QueryRow(ctx, `
		SELECT used FROM quota_counters WHERE date = $1
	`, date).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}
	return used, nil
}

var _ Arbiter = (*PostgresArbiter)(nil)

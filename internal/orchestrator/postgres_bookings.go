package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// PostgresBookingStore persists booking records in the bookings table.
// The primary key on transaction_id makes creation write-once; the
// unique constraint on reference_id surfaces collisions for retry.
type PostgresBookingStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingStore creates a booking store over the bookings
// table.
func NewPostgresBookingStore(pool *pgxpool.Pool) *PostgresBookingStore {
	return &PostgresBookingStore{pool: pool}
}

// Create inserts the record, mapping constraint violations to the
// store's sentinel errors.
func (s *PostgresBookingStore) Create(ctx context.Context, b *Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (
			transaction_id, user_name, user_gender, user_dob, service_ids,
			base_price, final_price, discount_applied, discount_percentage,
			reference_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		b.TransactionID, b.UserName, b.UserGender, b.UserDOB, b.ServiceIDs,
		b.BasePrice.String(), b.FinalPrice.String(), b.DiscountApplied, b.DiscountPercentage.String(),
		b.ReferenceID, b.Status, b.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "reference_id") {
				return ErrDuplicateReference
			}
			return ErrDuplicateBooking
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// ByTransactionID returns the record for a transaction.
func (s *PostgresBookingStore) ByTransactionID(ctx context.Context, transactionID string) (*Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT transaction_id, user_name, user_gender, user_dob, service_ids,
		       base_price::text, final_price::text, discount_applied, discount_percentage::text,
		       reference_id, status, created_at
		FROM bookings
		WHERE transaction_id = $1
	`, transactionID)

	var (
		b                          Booking
		basePrice, finalPrice, pct string
	)
	err := row.Scan(
		&b.TransactionID, &b.UserName, &b.UserGender, &b.UserDOB, &b.ServiceIDs,
		&basePrice, &finalPrice, &b.DiscountApplied, &pct,
		&b.ReferenceID, &b.Status, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	if b.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, fmt.Errorf("invalid base_price for %s: %w", transactionID, err)
	}
	if b.FinalPrice, err = decimal.NewFromString(finalPrice); err != nil {
		return nil, fmt.Errorf("invalid final_price for %s: %w", transactionID, err)
	}
	if b.DiscountPercentage, err = decimal.NewFromString(pct); err != nil {
		return nil, fmt.Errorf("invalid discount_percentage for %s: %w", transactionID, err)
	}

	return &b, nil
}

var _ BookingStore = (*PostgresBookingStore)(nil)

package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Booking store errors.
var (
	// ErrDuplicateBooking means a record already exists for the
	// transaction; finalization should reuse it.
	ErrDuplicateBooking = errors.New("booking already exists for transaction")
	// ErrDuplicateReference means the generated reference id collided;
	// the caller should regenerate and retry.
	ErrDuplicateReference = errors.New("reference id already in use")
	// ErrBookingNotFound is returned by lookups with no match.
	ErrBookingNotFound = errors.New("booking not found")
)

// BookingStatusConfirmed is the only status a booking record is ever
// created with.
const BookingStatusConfirmed = "confirmed"

// Booking is the write-once record created when a transaction
// terminates successfully.
type Booking struct {
	TransactionID      string          `json:"transaction_id"`
	UserName           string          `json:"user_name"`
	UserGender         string          `json:"user_gender"`
	UserDOB            string          `json:"user_dob"`
	ServiceIDs         []int           `json:"service_ids"`
	BasePrice          decimal.Decimal `json:"base_price"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	DiscountApplied    bool            `json:"discount_applied"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ReferenceID        string          `json:"reference_id"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
}

// BookingStore persists booking records. Create is write-once per
// transaction id and enforces reference id uniqueness.
type BookingStore interface {
	Create(ctx context.Context, b *Booking) error
	ByTransactionID(ctx context.Context, transactionID string) (*Booking, error)
}

// GenerateReferenceID builds a human-visible booking reference of the
// form BK<YYYYMMDD>-<6 digit random>.
func GenerateReferenceID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock.
		n = big.NewInt(now.UnixNano() % 1000000)
	}
	return fmt.Sprintf("BK%s-%06d", now.Format("20060102"), n.Int64())
}

// MemoryBookingStore keeps booking records in process. Used by tests
// and single-process mode.
type MemoryBookingStore struct {
	mu          sync.Mutex
	byTx        map[string]*Booking
	byReference map[string]string
}

// NewMemoryBookingStore creates an empty in-memory booking store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		byTx:        make(map[string]*Booking),
		byReference: make(map[string]string),
	}
}

// Create stores the record, enforcing both uniqueness constraints.
func (s *MemoryBookingStore) Create(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTx[b.TransactionID]; ok {
		return ErrDuplicateBooking
	}
	if _, ok := s.byReference[b.ReferenceID]; ok {
		return ErrDuplicateReference
	}

	stored := *b
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.byTx[b.TransactionID] = &stored
	s.byReference[b.ReferenceID] = b.TransactionID
	return nil
}

// ByTransactionID returns the record for a transaction.
func (s *MemoryBookingStore) ByTransactionID(_ context.Context, transactionID string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byTx[transactionID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

var _ BookingStore = (*MemoryBookingStore)(nil)

// Package event defines the booking event envelope carried on the bus.
// Every message on the booking topic is an Envelope; the event type
// determines which optional fields are populated.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types carried on the booking topic.
const (
	TypeInitiated        = "booking.initiated"
	TypeValidated        = "booking.validated"
	TypeValidationFailed = "booking.validation.failed"
	TypePriced           = "booking.priced"
	TypePricingFailed    = "booking.pricing.failed"
	TypeQuotaAcquired    = "booking.quota.acquired"
	TypeQuotaSkipped     = "booking.quota.skipped"
	TypeQuotaFailed      = "booking.quota.failed"
	TypeQuotaReleased    = "booking.quota.released"
	TypeCompensate       = "booking.compensate"
	TypeCompleted        = "booking.completed"
	TypeFailed           = "booking.failed"
)

// Booking is the transaction payload threaded through the saga. The
// pricing fields stay zero until the pricer enriches the payload.
// Monetary amounts travel as decimal strings on the wire.
type Booking struct {
	UserName           string          `json:"user_name"`
	UserGender         string          `json:"user_gender"`
	UserDOB            string          `json:"user_dob"`
	ServiceIDs         []int           `json:"service_ids"`
	BasePrice          decimal.Decimal `json:"base_price"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	DiscountEligible   bool            `json:"discount_eligible"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountReason     string          `json:"discount_reason,omitempty"`
}

// Envelope is the message carried on the booking topic.
type Envelope struct {
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	Data          *Booking  `json:"data,omitempty"`
	Errors        []string  `json:"errors,omitempty"`
	Error         string    `json:"error,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
}

// New creates an envelope with the current UTC timestamp.
func New(eventType, transactionID string) *Envelope {
	return &Envelope{
		EventType:     eventType,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// Initiated builds the booking.initiated event for a fresh transaction.
func Initiated(transactionID string, data *Booking) *Envelope {
	e := New(TypeInitiated, transactionID)
	e.Data = data
	return e
}

// Validated echoes the payload after successful validation.
func Validated(transactionID string, data *Booking) *Envelope {
	e := New(TypeValidated, transactionID)
	e.Data = data
	return e
}

// ValidationFailed carries the accumulated validation errors.
func ValidationFailed(transactionID string, errs []string) *Envelope {
	e := New(TypeValidationFailed, transactionID)
	e.Errors = errs
	return e
}

// Priced carries the payload enriched with pricing fields.
func Priced(transactionID string, data *Booking) *Envelope {
	e := New(TypePriced, transactionID)
	e.Data = data
	return e
}

// PricingFailed carries the pricing engine error.
func PricingFailed(transactionID string, errMsg string) *Envelope {
	e := New(TypePricingFailed, transactionID)
	e.Error = errMsg
	return e
}

// QuotaAcquired echoes the payload after a discount slot was claimed.
func QuotaAcquired(transactionID string, data *Booking) *Envelope {
	e := New(TypeQuotaAcquired, transactionID)
	e.Data = data
	return e
}

// QuotaSkipped echoes the payload when no discount slot was needed.
func QuotaSkipped(transactionID string, data *Booking) *Envelope {
	e := New(TypeQuotaSkipped, transactionID)
	e.Data = data
	return e
}

// QuotaFailed signals quota exhaustion for the day.
func QuotaFailed(transactionID string, errMsg string) *Envelope {
	e := New(TypeQuotaFailed, transactionID)
	e.Error = errMsg
	return e
}

// QuotaReleased confirms a compensating release.
func QuotaReleased(transactionID string) *Envelope {
	return New(TypeQuotaReleased, transactionID)
}

// Compensate instructs the quota arbiter to release the held slot.
func Compensate(transactionID string, reason string) *Envelope {
	e := New(TypeCompensate, transactionID)
	e.Reason = reason
	return e
}

// Completed is the terminal success event carrying the reference id.
func Completed(transactionID string, referenceID string) *Envelope {
	e := New(TypeCompleted, transactionID)
	e.ReferenceID = referenceID
	return e
}

// Failed is the terminal failure event.
func Failed(transactionID string, errMsg string) *Envelope {
	e := New(TypeFailed, transactionID)
	e.Error = errMsg
	return e
}

// Terminal reports whether the event type ends a transaction.
func Terminal(eventType string) bool {
	switch eventType {
	case TypeCompleted, TypeFailed, TypeQuotaReleased:
		return true
	}
	return false
}

// Key returns the partitioning key for the envelope.
func (e *Envelope) Key() string {
	return e.TransactionID
}

// Marshal serializes the envelope for the wire.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.EventType, err)
	}
	return data, nil
}

// Unmarshal parses an envelope from the wire.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if e.EventType == "" {
		return nil, fmt.Errorf("event missing event_type")
	}
	if e.TransactionID == "" {
		return nil, fmt.Errorf("%s event missing transaction_id", e.EventType)
	}
	return &e, nil
}

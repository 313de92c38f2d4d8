package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

const maxReferenceAttempts = 5

// Coordinator is the saga coordinator. It records every booking event
// in the state log, finalizes the booking on the first quota outcome,
// and decides from log content whether a failure owes compensation.
// Decisions never depend on arrival order: deliveries may be replayed
// or arrive out of order and the log queries absorb both.
type Coordinator struct {
	store    StateStore
	bookings BookingStore
	location *time.Location
}

// NewCoordinator creates a saga coordinator. The location defines the
// calendar day embedded in reference ids.
func NewCoordinator(store StateStore, bookings BookingStore, location *time.Location) *Coordinator {
	return &Coordinator{store: store, bookings: bookings, location: location}
}

// Handle appends the event to the state log and drives finalization or
// compensation. A duplicate delivery (already in the log) is a no-op.
func (c *Coordinator) Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	inserted, err := c.store.Append(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s event: %w", e.EventType, err)
	}
	if !inserted {
		return nil, nil
	}

	switch e.EventType {
	case event.TypeQuotaAcquired, event.TypeQuotaSkipped:
		return c.finalize(ctx, e)
	case event.TypeValidationFailed, event.TypePricingFailed, event.TypeQuotaFailed:
		return c.onFailure(ctx, e)
	case event.TypeQuotaReleased:
		return c.afterRelease(ctx, e)
	}

	return nil, nil
}

// finalize creates the booking record and emits booking.completed.
// Creation is idempotent: an existing record's reference id is reused,
// and a reference collision regenerates up to maxReferenceAttempts.
func (c *Coordinator) finalize(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	log := logger.Get()

	done, err := c.store.HasEvent(ctx, e.TransactionID, event.TypeCompleted)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	if e.Data == nil {
		failed := event.Failed(e.TransactionID, "missing booking data in quota outcome")
		if _, err := c.store.Append(ctx, failed); err != nil {
			return nil, err
		}
		return []*event.Envelope{failed}, nil
	}

	referenceID, err := c.createBooking(ctx, e)
	if err != nil {
		return nil, err
	}

	completed := event.Completed(e.TransactionID, referenceID)
	if _, err := c.store.Append(ctx, completed); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	log.Info("booking completed",
		zap.String("transaction_id", e.TransactionID),
		zap.String("reference_id", referenceID))

	return []*event.Envelope{completed}, nil
}

func (c *Coordinator) createBooking(ctx context.Context, e *event.Envelope) (string, error) {
	data := e.Data

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		booking := &Booking{
			TransactionID:      e.TransactionID,
			UserName:           data.UserName,
			UserGender:         data.UserGender,
			UserDOB:            data.UserDOB,
			ServiceIDs:         data.ServiceIDs,
			BasePrice:          data.BasePrice,
			FinalPrice:         data.FinalPrice,
			DiscountApplied:    data.DiscountEligible,
			DiscountPercentage: data.DiscountPercentage,
			ReferenceID:        GenerateReferenceID(time.Now().In(c.location)),
			Status:             BookingStatusConfirmed,
		}

		err := c.bookings.Create(ctx, booking)
		switch err {
		case nil:
			return booking.ReferenceID, nil
		case ErrDuplicateBooking:
			existing, err := c.bookings.ByTransactionID(ctx, e.TransactionID)
			if err != nil {
				return "", fmt.Errorf("failed to load existing booking: %w", err)
			}
			return existing.ReferenceID, nil
		case ErrDuplicateReference:
			continue
		default:
			return "", err
		}
	}

	return "", fmt.Errorf("failed to generate unique reference id after %d attempts", maxReferenceAttempts)
}

// onFailure decides between compensation and terminal failure. The
// allocation is active iff the log shows quota.acquired without
// quota.released; the compensation flag keeps the compensate emission
// at most once.
func (c *Coordinator) onFailure(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	log := logger.Get()
	reason := failureReason(e)

	acquired, err := c.store.HasEvent(ctx, e.TransactionID, event.TypeQuotaAcquired)
	if err != nil {
		return nil, err
	}
	released, err := c.store.HasEvent(ctx, e.TransactionID, event.TypeQuotaReleased)
	if err != nil {
		return nil, err
	}

	if acquired && !released {
		first, err := c.store.MarkCompensationEmitted(ctx, e.TransactionID)
		if err != nil {
			return nil, err
		}
		if !first {
			return nil, nil
		}
		log.Info("compensation required",
			zap.String("transaction_id", e.TransactionID),
			zap.String("reason", reason))
		return []*event.Envelope{event.Compensate(e.TransactionID, reason)}, nil
	}

	return c.emitFailed(ctx, e.TransactionID, reason)
}

// afterRelease closes out a compensated transaction with the terminal
// booking.failed event, deriving the error from the failure event that
// triggered the compensation.
func (c *Coordinator) afterRelease(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	reason, err := c.firstFailureReason(ctx, e.TransactionID)
	if err != nil {
		return nil, err
	}
	return c.emitFailed(ctx, e.TransactionID, reason)
}

func (c *Coordinator) emitFailed(ctx context.Context, transactionID, reason string) ([]*event.Envelope, error) {
	already, err := c.store.HasEvent(ctx, transactionID, event.TypeFailed)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	failed := event.Failed(transactionID, reason)
	if _, err := c.store.Append(ctx, failed); err != nil {
		return nil, fmt.Errorf("failed to record failure: %w", err)
	}

	logger.Get().Info("booking failed",
		zap.String("transaction_id", transactionID),
		zap.String("error", reason))

	return []*event.Envelope{failed}, nil
}

// firstFailureReason scans the log for the earliest failure event and
// returns its error text.
func (c *Coordinator) firstFailureReason(ctx context.Context, transactionID string) (string, error) {
	entries, err := c.store.Log(ctx, transactionID)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		switch entry.EventType {
		case event.TypeValidationFailed, event.TypePricingFailed, event.TypeQuotaFailed:
			recorded, err := event.Unmarshal(entry.Payload)
			if err != nil {
				continue
			}
			return failureReason(recorded), nil
		}
	}
	return "Booking failed", nil
}

func failureReason(e *event.Envelope) string {
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	if e.Error != "" {
		return e.Error
	}
	return "Booking failed"
}

var _ bus.Handler = (*Coordinator)(nil)

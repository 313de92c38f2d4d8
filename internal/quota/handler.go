package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

// Handler consumes booking.priced (acquire path) and booking.compensate
// (release path).
type Handler struct {
	arbiter  Arbiter
	location *time.Location
}

// NewHandler creates a quota handler using the given arbiter. The
// location defines the clinic's calendar day.
func NewHandler(arbiter Arbiter, location *time.Location) *Handler {
	return &Handler{arbiter: arbiter, location: location}
}

// Handle routes the acquire and release paths. Quota exhaustion is a
// business outcome emitted as booking.quota.failed, not an error.
func (h *Handler) Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	switch e.EventType {
	case event.TypePriced:
		return h.acquire(ctx, e)
	case event.TypeCompensate:
		return h.release(ctx, e)
	}
	return nil, nil
}

func (h *Handler) acquire(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	log := logger.Get()

	if e.Data == nil || !e.Data.DiscountEligible {
		log.Info("quota skipped",
			zap.String("transaction_id", e.TransactionID))
		return []*event.Envelope{event.QuotaSkipped(e.TransactionID, e.Data)}, nil
	}

	date := Today(h.location)
	ok, err := h.arbiter.Acquire(ctx, e.TransactionID, date)
	if err != nil {
		return nil, fmt.Errorf("quota acquire failed: %w", err)
	}

	if !ok {
		log.Info("quota exhausted",
			zap.String("transaction_id", e.TransactionID),
			zap.String("date", date))
		return []*event.Envelope{event.QuotaFailed(e.TransactionID, ErrQuotaExhaustedMessage)}, nil
	}

	log.Info("quota acquired",
		zap.String("transaction_id", e.TransactionID),
		zap.String("date", date))
	return []*event.Envelope{event.QuotaAcquired(e.TransactionID, e.Data)}, nil
}

func (h *Handler) release(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	if _, err := h.arbiter.Release(ctx, e.TransactionID); err != nil {
		return nil, fmt.Errorf("quota release failed: %w", err)
	}

	logger.Get().Info("quota released",
		zap.String("transaction_id", e.TransactionID),
		zap.String("reason", e.Reason))
	return []*event.Envelope{event.QuotaReleased(e.TransactionID)}, nil
}

var _ bus.Handler = (*Handler)(nil)

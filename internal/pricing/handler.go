package pricing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

// Handler consumes booking.validated and emits booking.priced or
// booking.pricing.failed.
type Handler struct {
	engine  *Engine
	catalog catalog.Catalog
}

// NewHandler creates a pricing handler.
func NewHandler(engine *Engine, cat catalog.Catalog) *Handler {
	return &Handler{engine: engine, catalog: cat}
}

// Handle prices the booking. Engine errors become a pricing failure
// event; only infrastructure errors (catalog unavailable) are returned
// for retry.
func (h *Handler) Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	if e.EventType != event.TypeValidated {
		return nil, nil
	}
	if e.Data == nil {
		return []*event.Envelope{
			event.PricingFailed(e.TransactionID, "missing booking data"),
		}, nil
	}

	booking := e.Data

	services, err := h.catalog.ByIDs(ctx, booking.ServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve services: %w", err)
	}

	quote, err := h.engine.Price(services, booking.UserGender, booking.UserDOB)
	if err != nil {
		logger.Get().Warn("pricing failed",
			zap.String("transaction_id", e.TransactionID),
			zap.Error(err))
		return []*event.Envelope{event.PricingFailed(e.TransactionID, err.Error())}, nil
	}

	priced := *booking
	priced.BasePrice = quote.BasePrice
	priced.FinalPrice = quote.FinalPrice
	priced.DiscountEligible = quote.DiscountEligible
	priced.DiscountPercentage = quote.DiscountPercentage
	priced.DiscountReason = quote.DiscountReason

	logger.Get().Info("booking priced",
		zap.String("transaction_id", e.TransactionID),
		zap.String("base_price", quote.BasePrice.String()),
		zap.String("final_price", quote.FinalPrice.String()),
		zap.Bool("discount_eligible", quote.DiscountEligible))

	return []*event.Envelope{event.Priced(e.TransactionID, &priced)}, nil
}

var _ bus.Handler = (*Handler)(nil)

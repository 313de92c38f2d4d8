// Package validator checks booking requests against user fields and
// the gender restrictions of the requested services.
package validator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

// Handler consumes booking.initiated and emits booking.validated or
// booking.validation.failed.
type Handler struct {
	catalog catalog.Catalog
}

// NewHandler creates a validation handler over the given catalog.
func NewHandler(cat catalog.Catalog) *Handler {
	return &Handler{catalog: cat}
}

// Handle validates the booking payload. Unknown service ids are
// dropped by the catalog and do not produce an error; catalog
// consistency is surfaced elsewhere.
func (h *Handler) Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	if e.EventType != event.TypeInitiated {
		return nil, nil
	}
	if e.Data == nil {
		return []*event.Envelope{
			event.ValidationFailed(e.TransactionID, []string{"Missing booking data"}),
		}, nil
	}

	booking := e.Data
	var errs []string

	if strings.TrimSpace(booking.UserName) == "" {
		errs = append(errs, "Name required")
	}

	if booking.UserGender != catalog.GenderMale && booking.UserGender != catalog.GenderFemale {
		errs = append(errs, "Invalid gender")
	}

	// The gender check runs even when the gender is invalid; every
	// restricted service then fails with the gender as submitted.
	services, err := h.catalog.ByIDs(ctx, booking.ServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve services: %w", err)
	}
	for _, s := range services {
		if !s.AvailableFor(booking.UserGender) {
			errs = append(errs, fmt.Sprintf("Service '%s' not available for %s", s.Name, booking.UserGender))
		}
	}

	if len(errs) > 0 {
		logger.Get().Info("booking validation failed",
			zap.String("transaction_id", e.TransactionID),
			zap.Strings("errors", errs))
		return []*event.Envelope{event.ValidationFailed(e.TransactionID, errs)}, nil
	}

	logger.Get().Info("booking validated",
		zap.String("transaction_id", e.TransactionID))
	return []*event.Envelope{event.Validated(e.TransactionID, booking)}, nil
}

var _ bus.Handler = (*Handler)(nil)

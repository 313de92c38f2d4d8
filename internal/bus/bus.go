// Package bus provides the event bus the booking saga runs on: a Kafka
// implementation for deployment and an in-memory implementation for
// tests and single-process mode.
package bus

import (
	"context"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

const (
	// TopicBookingEvents is the single topic carrying all booking events.
	TopicBookingEvents = "booking-events"
)

// Publisher publishes booking events to the bus.
type Publisher interface {
	Publish(ctx context.Context, e *event.Envelope) error
}

// Handler consumes a booking event and returns the events to emit in
// response. Business failures are returned as failure events, not as
// errors; a non-nil error means the delivery should be retried.
type Handler interface {
	Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error)

// Handle calls f(ctx, e).
func (f HandlerFunc) Handle(ctx context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	return f(ctx, e)
}

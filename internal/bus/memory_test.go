package bus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

// recordingHandler collects every event type it sees, optionally
// emitting a follow-up for one of them.
type recordingHandler struct {
	mu     sync.Mutex
	seen   []string
	emitOn string
	emit   func(e *event.Envelope) *event.Envelope
}

func (h *recordingHandler) Handle(_ context.Context, e *event.Envelope) ([]*event.Envelope, error) {
	h.mu.Lock()
	h.seen = append(h.seen, e.EventType)
	h.mu.Unlock()

	if h.emitOn != "" && e.EventType == h.emitOn {
		return []*event.Envelope{h.emit(e)}, nil
	}
	return nil, nil
}

func (h *recordingHandler) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.seen))
	copy(out, h.seen)
	return out
}

func TestMemoryBusDeliversToAllSubscribers(t *testing.T) {
	b := NewMemoryBus()
	first := &recordingHandler{}
	second := &recordingHandler{}
	b.Subscribe(first)
	b.Subscribe(second)

	require.NoError(t, b.Publish(context.Background(), event.New(event.TypeInitiated, "tx-1")))
	b.Drain()

	assert.Equal(t, []string{event.TypeInitiated}, first.events())
	assert.Equal(t, []string{event.TypeInitiated}, second.events())
}

func TestMemoryBusRepublishesEmittedEvents(t *testing.T) {
	b := NewMemoryBus()

	chain := &recordingHandler{
		emitOn: event.TypeInitiated,
		emit: func(e *event.Envelope) *event.Envelope {
			return event.Validated(e.TransactionID, nil)
		},
	}
	observer := &recordingHandler{}
	b.Subscribe(chain)
	b.Subscribe(observer)

	require.NoError(t, b.Publish(context.Background(), event.New(event.TypeInitiated, "tx-1")))
	b.Drain()

	// Drain saw the full chain, and delivery order follows publish order.
	assert.Equal(t, []string{event.TypeInitiated, event.TypeValidated}, observer.events())
}

func TestMemoryBusHandlerErrorDoesNotStopDelivery(t *testing.T) {
	b := NewMemoryBus()

	failing := HandlerFunc(func(context.Context, *event.Envelope) ([]*event.Envelope, error) {
		return nil, assert.AnError
	})
	observer := &recordingHandler{}
	b.Subscribe(failing)
	b.Subscribe(observer)

	require.NoError(t, b.Publish(context.Background(), event.New(event.TypeInitiated, "tx-1")))
	b.Drain()

	assert.Equal(t, []string{event.TypeInitiated}, observer.events())
}

package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

// MemoryBus is an in-process bus that delivers published events to
// every subscribed handler in publish order, matching the per-key
// ordering a broker partition gives the services in production. Events
// emitted by a handler are re-published, so a full saga runs to its
// terminal state from a single Publish. Drain blocks until no
// deliveries are pending, which makes the saga testable without any
// broker.
type MemoryBus struct {
	mu          sync.Mutex
	handlers    []Handler
	queue       []*event.Envelope
	dispatching bool
	wg          sync.WaitGroup
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Subscribe registers a handler for all published events.
func (b *MemoryBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues the event for ordered delivery and returns
// immediately. A single dispatcher goroutine drains the queue.
func (b *MemoryBus) Publish(ctx context.Context, e *event.Envelope) error {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	b.wg.Add(1)
	if !b.dispatching {
		b.dispatching = true
		go b.dispatch(ctx)
	}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) dispatch(ctx context.Context) {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		e := b.queue[0]
		b.queue = b.queue[1:]
		handlers := make([]Handler, len(b.handlers))
		copy(handlers, b.handlers)
		b.mu.Unlock()

		for _, h := range handlers {
			emitted, err := h.Handle(ctx, e)
			if err != nil {
				logger.Get().Error("in-memory handler failed",
					zap.String("event_type", e.EventType),
					zap.String("transaction_id", e.TransactionID),
					zap.Error(err))
				continue
			}
			for _, out := range emitted {
				if err := b.Publish(ctx, out); err != nil {
					logger.Get().Error("in-memory re-publish failed",
						zap.String("event_type", out.EventType),
						zap.Error(err))
				}
			}
		}
		b.wg.Done()
	}
}

// Drain blocks until every pending delivery, including deliveries
// triggered by re-published events, has completed.
func (b *MemoryBus) Drain() {
	b.wg.Wait()
}

var _ Publisher = (*MemoryBus)(nil)

package quota

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

const testDate = "2026-03-15"

func TestMemoryArbiterCap(t *testing.T) {
	a := NewMemoryArbiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := a.Acquire(ctx, fmt.Sprintf("tx-%d", i), testDate)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := a.Acquire(ctx, "tx-over", testDate)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, a.Used(testDate))

	// A different day has its own counter.
	ok, err = a.Acquire(ctx, "tx-tomorrow", "2026-03-16")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryArbiterIdempotentAcquire(t *testing.T) {
	a := NewMemoryArbiter(10)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "tx-1", testDate)
	require.NoError(t, err)
	require.True(t, ok)

	// Redelivered acquire does not consume a second slot.
	ok, err = a.Acquire(ctx, "tx-1", testDate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, a.Used(testDate))
}

func TestMemoryArbiterRelease(t *testing.T) {
	a := NewMemoryArbiter(10)
	ctx := context.Background()

	_, err := a.Acquire(ctx, "tx-1", testDate)
	require.NoError(t, err)
	require.Equal(t, 1, a.Used(testDate))

	ok, err := a.Release(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, a.Used(testDate))

	// Redelivered release decrements only once.
	ok, err = a.Release(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, a.Used(testDate))

	// Releasing an unknown transaction is a no-op.
	ok, err = a.Release(ctx, "tx-never")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryArbiterReleaseFreesSlot(t *testing.T) {
	a := NewMemoryArbiter(1)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "tx-1", testDate)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.Acquire(ctx, "tx-2", testDate)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = a.Release(ctx, "tx-1")
	require.NoError(t, err)

	ok, err = a.Acquire(ctx, "tx-2", testDate)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryArbiterConcurrentAcquire(t *testing.T) {
	const maxSlots = 100
	const contenders = 200

	a := NewMemoryArbiter(maxSlots)
	ctx := context.Background()

	var wg sync.WaitGroup
	granted := make(chan string, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := a.Acquire(ctx, fmt.Sprintf("tx-%d", i), testDate)
			assert.NoError(t, err)
			if ok {
				granted <- fmt.Sprintf("tx-%d", i)
			}
		}(i)
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	assert.Equal(t, maxSlots, count)
	assert.Equal(t, maxSlots, a.Used(testDate))
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+30*60)
	date := Today(loc)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, date)
}

func TestHandlerSkipsIneligible(t *testing.T) {
	h := NewHandler(NewMemoryArbiter(10), time.UTC)

	booking := &event.Booking{UserName: "Ravi", UserGender: "male", DiscountEligible: false}
	emitted, err := h.Handle(context.Background(), event.Priced("tx-1", booking))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeQuotaSkipped, emitted[0].EventType)
	assert.Equal(t, booking, emitted[0].Data)
}

func TestHandlerAcquires(t *testing.T) {
	a := NewMemoryArbiter(10)
	h := NewHandler(a, time.UTC)

	booking := &event.Booking{UserName: "Priya", UserGender: "female", DiscountEligible: true}
	emitted, err := h.Handle(context.Background(), event.Priced("tx-1", booking))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeQuotaAcquired, emitted[0].EventType)
	assert.Equal(t, 1, a.Used(Today(time.UTC)))
}

func TestHandlerQuotaExhausted(t *testing.T) {
	h := NewHandler(NewMemoryArbiter(0), time.UTC)

	booking := &event.Booking{UserName: "Priya", UserGender: "female", DiscountEligible: true}
	emitted, err := h.Handle(context.Background(), event.Priced("tx-1", booking))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeQuotaFailed, emitted[0].EventType)
	assert.Equal(t, ErrQuotaExhaustedMessage, emitted[0].Error)
}

func TestHandlerReleases(t *testing.T) {
	a := NewMemoryArbiter(10)
	h := NewHandler(a, time.UTC)

	booking := &event.Booking{UserName: "Priya", UserGender: "female", DiscountEligible: true}
	_, err := h.Handle(context.Background(), event.Priced("tx-1", booking))
	require.NoError(t, err)
	require.Equal(t, 1, a.Used(Today(time.UTC)))

	emitted, err := h.Handle(context.Background(), event.Compensate("tx-1", "validation failed"))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeQuotaReleased, emitted[0].EventType)
	assert.Equal(t, 0, a.Used(Today(time.UTC)))
}

func TestHandlerIgnoresOtherEvents(t *testing.T) {
	h := NewHandler(NewMemoryArbiter(10), time.UTC)

	emitted, err := h.Handle(context.Background(), event.Initiated("tx-1", &event.Booking{}))
	require.NoError(t, err)
	assert.Empty(t, emitted)
}

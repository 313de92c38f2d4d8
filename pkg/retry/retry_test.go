package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps test backoffs in the millisecond range.
func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	result := New(fastConfig(3)).Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("quota counters unavailable")
		}
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
}

func TestDoExhaustsRetries(t *testing.T) {
	cause := errors.New("broker unreachable")
	attempts := 0
	result := New(fastConfig(2)).Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	})

	assert.ErrorIs(t, result.Err, ErrMaxRetriesExceeded)
	assert.Equal(t, cause, result.LastError)
	// Initial attempt plus two retries.
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cause := errors.New("event payload does not decode")
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(cause)
	})

	assert.Equal(t, cause, result.Err)
	assert.Equal(t, cause, result.LastError)
	assert.Equal(t, 1, attempts)
}

func TestDoHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	result := New(fastConfig(5)).Do(ctx, func(context.Context) error {
		attempts++
		return errors.New("should not matter")
	})

	assert.ErrorIs(t, result.Err, ErrContextCanceled)
	assert.Zero(t, attempts)
}

func TestDoCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &Config{
		MaxRetries:      3,
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
		Multiplier:      2.0,
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := New(cfg).Do(ctx, func(context.Context) error {
		return errors.New("still failing")
	})

	assert.ErrorIs(t, result.Err, ErrContextCanceled)
	assert.Equal(t, 1, result.Attempts)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	r := New(&Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0,
	})

	assert.Equal(t, time.Second, r.backoff(0))
	assert.Equal(t, 2*time.Second, r.backoff(1))
	assert.Equal(t, 4*time.Second, r.backoff(2))
	// Capped from here on.
	assert.Equal(t, 4*time.Second, r.backoff(3))
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(nil)
	assert.Equal(t, 5, r.config.MaxRetries)

	r = New(&Config{JitterFactor: 2})
	assert.Equal(t, time.Second, r.config.InitialInterval)
	assert.Equal(t, 30*time.Second, r.config.MaxInterval)
	assert.Equal(t, 2.0, r.config.Multiplier)
	assert.Equal(t, 1.0, r.config.JitterFactor)
}

// Package retry provides the backoff policy used when dispatching
// booking events to their handlers, and the dead-letter types a
// consumer falls back to once that policy is exhausted.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	// ErrMaxRetriesExceeded is returned when every attempt failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrContextCanceled is returned when the context ended before the
	// operation could succeed, typically during shutdown.
	ErrContextCanceled = errors.New("context canceled during retry")
)

// Config controls the exponential backoff between attempts.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the backoff.
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry.
	Multiplier float64
	// JitterFactor spreads the interval by up to this fraction in
	// either direction, so replays of the same partition do not
	// hammer a struggling dependency in lockstep.
	JitterFactor float64
}

// DefaultConfig backs off 1s, 2s, 4s, 8s, 16s with a 30s cap.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the unit of work being retried.
type Operation func(ctx context.Context) error

// PermanentError marks an error that retrying cannot fix, such as a
// record that does not decode. The retrier stops immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retrier gives up after one attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result reports how a retried operation ended.
type Result struct {
	// Err is nil on success, ErrMaxRetriesExceeded or
	// ErrContextCanceled otherwise, or the unwrapped cause for a
	// permanent error.
	Err error
	// Attempts counts every call of the operation, the initial one
	// included.
	Attempts int
	// LastError is whatever the final attempt returned.
	LastError error
}

// Retrier runs operations under a backoff policy.
type Retrier struct {
	config *Config
}

// New creates a Retrier, filling unset config fields from the default
// policy. A nil config means the default policy.
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = time.Second
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	}
	if config.JitterFactor > 1 {
		config.JitterFactor = 1
	}
	return &Retrier{config: config}
}

// Do runs op until it succeeds, fails permanently, runs out of
// attempts, or the context ends.
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	result := &Result{}

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			return result
		}

		result.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			return result
		}
		result.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			result.Err = perm.Err
			result.LastError = perm.Err
			return result
		}

		if attempt == r.config.MaxRetries {
			result.Err = ErrMaxRetriesExceeded
			return result
		}

		select {
		case <-ctx.Done():
			result.Err = ErrContextCanceled
			return result
		case <-time.After(r.backoff(attempt)):
		}
	}
}

// backoff returns the wait before the retry following attempt.
func (r *Retrier) backoff(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))

	if r.config.JitterFactor > 0 {
		jitter := interval * r.config.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}

	if max := float64(r.config.MaxInterval); interval > max {
		interval = max
	}
	if interval < 0 {
		interval = float64(r.config.InitialInterval)
	}
	return time.Duration(interval)
}

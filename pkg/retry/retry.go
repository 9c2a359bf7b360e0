// Package retry runs operations under a bounded exponential backoff
// policy. Only errors explicitly marked with Retryable are attempted
// again; everything else fails immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config bounds the retry loop.
type Config struct {
	Attempts   int           // total attempts, values below 1 mean a single attempt
	BaseWait   time.Duration // wait before the second attempt
	MaxWait    time.Duration // cap on a single wait
	Multiplier float64       // growth factor between waits
	Jitter     float64       // random spread factor (0-1)
}

// DefaultConfig is tuned for object fetches over flaky networks.
func DefaultConfig() Config {
	return Config{
		Attempts:   4,
		BaseWait:   500 * time.Millisecond,
		MaxWait:    30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// RetryableError marks an error as transient.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string {
	return e.Err.Error()
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}

// IsRetryable reports whether err is marked transient anywhere in its
// chain.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// Do runs fn up to cfg.Attempts times, waiting between attempts. It
// stops early on a non-retryable error or when ctx is canceled. After
// the final attempt the last error is returned wrapped with the
// attempt count.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait(cfg, attempt)):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// wait computes the backoff before the attempt following the given
// one.
func wait(cfg Config, attempt int) time.Duration {
	w := float64(cfg.BaseWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if max := float64(cfg.MaxWait); cfg.MaxWait > 0 && w > max {
		w = max
	}
	if cfg.Jitter > 0 {
		w += w * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	if w < 0 {
		w = 0
	}
	return time.Duration(w)
}

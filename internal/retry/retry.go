package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFraction    float64

	// OnRetry is called before sleeping, with the attempt that just failed
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns defaults for upstream catalog calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// WithAttempts returns the defaults with a different attempt budget
func WithAttempts(n int) Config {
	cfg := DefaultConfig()
	if n < 1 {
		n = 1
	}
	cfg.MaxAttempts = n
	return cfg
}

// IsRetryable is a function that determines if an error should trigger a retry
type IsRetryable func(error) bool

// Upstream retries timeouts, 5xx/429 and connection failures
var Upstream IsRetryable = apperrors.IsRetryable

// Do executes fn with exponential backoff
func Do(ctx context.Context, cfg Config, fn func() error, isRetryable IsRetryable) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, isRetryable)
	return err
}

// DoWithResult executes fn with exponential backoff and returns its result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error), isRetryable IsRetryable) (T, error) {
	var result T
	var err error
	if isRetryable == nil {
		isRetryable = Upstream
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) || attempt == attempts {
			return result, err
		}

		sleep := calculateBackoff(backoff, cfg.JitterFraction)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return result, err
}

// calculateBackoff adds jitter to prevent thundering herd
func calculateBackoff(backoff time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return backoff
	}

	jitter := float64(backoff) * jitterFraction
	result := float64(backoff) + (rand.Float64()*2-1)*jitter
	if result < 0 {
		result = 0
	}

	return time.Duration(result)
}

// Backoff calculates the backoff duration for a given attempt
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	duration := time.Duration(float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1)))
	if cfg.MaxBackoff > 0 && duration > cfg.MaxBackoff {
		duration = cfg.MaxBackoff
	}

	return calculateBackoff(duration, cfg.JitterFraction)
}

package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/smartcity/routeplanner/internal/domain"
)

// RetryPolicy retries provider calls with exponential backoff.
// Attempt n (1-based) waits BaseDelay * Multiplier^(n-1), capped at MaxDelay,
// before attempt n+1.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	// Retryable classifies errors; nil means DefaultRetryable
	Retryable func(error) bool

	// OnRetry is called before each backoff sleep
	OnRetry func(attempt int, delay time.Duration, err error)

	// Sleep waits for d or until ctx is done; nil means a real timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy mirrors an exponential 1s..60s backoff over 5 attempts
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    time.Minute,
	}
}

// DefaultRetryable retries throttling and transient failures, never
// configuration errors, not-found results or context cancellation
func DefaultRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrNotFound):
		return false
	case errors.Is(err, domain.ErrRateLimited):
		return true
	default:
		return errors.Is(err, domain.ErrProviderUnavailable)
	}
}

// Delay returns the backoff after the given failed attempt
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. The last error is returned.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || !retryable(err) || attempt == attempts {
			return result, err
		}
		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return result, errors.Join(err, serr)
		}
	}
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/smartcity/routeplanner/internal/domain"
)

// breakerFailureThreshold trips a provider breaker after this many consecutive transient failures
const breakerFailureThreshold = 5

// newProviderBreaker builds a circuit breaker that only counts transient
// provider failures. Throttling, not-found and configuration errors pass through.
func newProviderBreaker[T any](name string, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrProviderUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("provider circuit breaker state changed")
		},
	})
}

// breakerError maps an open breaker to a transient provider failure
func breakerError(provider string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrProviderUnavailable, err)
	}
	return err
}

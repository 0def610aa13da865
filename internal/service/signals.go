package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
)

// Observation is what the providers report for one candidate move
type Observation struct {
	Weather domain.Weather
	Travel  domain.TravelTime
}

// SignalSource observes the live signals for a move from one destination to another
type SignalSource interface {
	Observe(ctx context.Context, from, to domain.Destination) (Observation, error)
}

// Signals fans out to the weather and travel time providers. Every call is
// wrapped in the retry policy with a per-attempt timeout.
type Signals struct {
	weather WeatherProvider
	travel  TravelTimeProvider
	policy  RetryPolicy
	timeout time.Duration
	logger  zerolog.Logger
}

// NewSignals creates the provider facade. timeout <= 0 disables the per-attempt deadline.
func NewSignals(weather WeatherProvider, travel TravelTimeProvider, policy RetryPolicy, timeout time.Duration, logger zerolog.Logger) *Signals {
	return &Signals{
		weather: weather,
		travel:  travel,
		policy:  policy,
		timeout: timeout,
		logger:  logger,
	}
}

// Observe fetches weather at the candidate and the travel time to it concurrently
func (s *Signals) Observe(ctx context.Context, from, to domain.Destination) (Observation, error) {
	var (
		obs        Observation
		wg         sync.WaitGroup
		weatherErr error
		travelErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.Weather, weatherErr = Retry(ctx, s.policyFor("weather"), func(ctx context.Context) (domain.Weather, error) {
			ctx, cancel := s.attemptContext(ctx)
			defer cancel()
			return s.weather.CurrentWeather(ctx, to)
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.Travel, travelErr = Retry(ctx, s.policyFor("travel_time"), func(ctx context.Context) (domain.TravelTime, error) {
			ctx, cancel := s.attemptContext(ctx)
			defer cancel()
			return s.travel.TravelTime(ctx, from, to)
		})
	}()

	wg.Wait()

	if err := errors.Join(weatherErr, travelErr); err != nil {
		return obs, err
	}
	return obs, nil
}

func (s *Signals) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Signals) policyFor(provider string) RetryPolicy {
	p := s.policy
	next := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.ProviderRetries.WithLabelValues(provider).Inc()
		s.logger.Debug().Err(err).Str("provider", provider).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying provider call")
		if next != nil {
			next(attempt, delay, err)
		}
	}
	return p
}

// outcomeOf labels a provider result for metrics
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConfiguration):
		return "config"
	default:
		return "error"
	}
}

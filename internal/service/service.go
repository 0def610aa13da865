package service

import (
	"context"

	"github.com/smartcity/routeplanner/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.DataRepository

// WeatherProvider returns the current weather around a destination
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, dest domain.Destination) (domain.Weather, error)
}

// TravelTimeProvider returns the travel time between two destinations.
// A route that does not exist is reported as domain.UnavailableTravelTime, not an error.
type TravelTimeProvider interface {
	TravelTime(ctx context.Context, from, to domain.Destination) (domain.TravelTime, error)
}

// SentimentScorer scores a review comment on the [0,5] scale
type SentimentScorer interface {
	Score(ctx context.Context, comment string) (float64, error)
}

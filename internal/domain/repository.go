package domain

import (
	"context"
)

// DestinationCatalog lists the destinations of a city.
// ListDestinations returns ErrUnknownCity when the city has none, and must
// return them in the same order on every call.
type DestinationCatalog interface {
	// ListDestinations returns the ordered destinations of a city
	ListDestinations(ctx context.Context, city string) ([]Destination, error)

	// GetDestination returns one destination of a city
	GetDestination(ctx context.Context, city string, id int64) (Destination, error)

	// UpdateDestinationSentiment writes back rating, review count and canonical sentiment
	UpdateDestinationSentiment(ctx context.Context, id int64, rating float64, reviewCount int, sentiment float64) error
}

// ValueTableRepository persists one square value table per city.
// GetValueTable returns ErrNotFound when the city has no table.
type ValueTableRepository interface {
	GetValueTable(ctx context.Context, city string) ([][]float64, error)
	PutValueTable(ctx context.Context, city string, rows [][]float64) error
}

// TravelTimeRepository is the durable layer of the travel time cache
type TravelTimeRepository interface {
	// GetTravelTime returns ErrNotFound on a miss
	GetTravelTime(ctx context.Context, city string, fromID, toID int64) (TravelTime, error)
	SaveTravelTime(ctx context.Context, city string, fromID, toID int64, t TravelTime) error
}

// ReviewRepository stores scored reviews
type ReviewRepository interface {
	SaveReview(ctx context.Context, r Review) (Review, error)
	SummarizeReviews(ctx context.Context, city string, destinationID int64) (ReviewSummary, error)
}

// DataRepository is the full persistence surface of the service
type DataRepository interface {
	DestinationCatalog
	ValueTableRepository
	TravelTimeRepository
	ReviewRepository

	// Health checks database connectivity
	Health(ctx context.Context) error
}

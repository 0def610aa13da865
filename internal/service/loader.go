package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/pkg/utils"
)

// DestinationLoader reads a city's catalog for one training or recommendation
// session and fills in missing sentiment from stored reviews
type DestinationLoader struct {
	catalog domain.DestinationCatalog
	reviews domain.ReviewRepository
	logger  zerolog.Logger
}

// NewDestinationLoader creates a loader. reviews may be nil to disable backfill.
func NewDestinationLoader(catalog domain.DestinationCatalog, reviews domain.ReviewRepository, logger zerolog.Logger) *DestinationLoader {
	return &DestinationLoader{catalog: catalog, reviews: reviews, logger: logger}
}

// Load returns the ordered destinations of a city
func (l *DestinationLoader) Load(ctx context.Context, city string) ([]domain.Destination, error) {
	dests, err := l.catalog.ListDestinations(ctx, city)
	if err != nil {
		return nil, domain.NewCityError(city, "list destinations", err)
	}
	if len(dests) == 0 {
		return nil, domain.NewCityError(city, "", domain.ErrUnknownCity)
	}

	if l.reviews == nil {
		return dests, nil
	}
	for i := range dests {
		if dests[i].SentimentScore != nil {
			continue
		}
		if err := l.backfill(ctx, city, &dests[i]); err != nil {
			l.logger.Warn().Err(err).Str("city", city).Int64("destination_id", dests[i].ID).Msg("sentiment backfill failed, using neutral sentiment")
		}
	}
	return dests, nil
}

func (l *DestinationLoader) backfill(ctx context.Context, city string, d *domain.Destination) error {
	summary, err := l.reviews.SummarizeReviews(ctx, city, d.ID)
	if err != nil {
		return fmt.Errorf("summarize reviews: %w", err)
	}
	if summary.Count == 0 {
		return nil
	}

	rating := utils.RoundTo(summary.AverageScore, 2)
	sentiment := domain.NormalizeSentiment(summary.AverageScore)
	d.Rating = rating
	d.ReviewCount = summary.Count
	d.SentimentScore = &sentiment

	if err := l.catalog.UpdateDestinationSentiment(ctx, d.ID, rating, summary.Count, sentiment); err != nil {
		return fmt.Errorf("write back sentiment: %w", err)
	}
	l.logger.Debug().Str("city", city).Int64("destination_id", d.ID).Float64("sentiment", sentiment).Msg("sentiment backfilled")
	return nil
}

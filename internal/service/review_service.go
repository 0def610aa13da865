package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/pkg/utils"
)

// ReviewResult is a stored review together with the destination's new aggregates
type ReviewResult struct {
	Review      domain.Review `json:"review"`
	Rating      float64       `json:"rating"`
	ReviewCount int           `json:"review_count"`
	Sentiment   float64       `json:"sentiment_score"`
}

// ReviewService scores visitor comments and keeps destination sentiment current
type ReviewService struct {
	catalog domain.DestinationCatalog
	reviews domain.ReviewRepository
	scorer  SentimentScorer
	logger  zerolog.Logger
}

// NewReviewService creates a review service
func NewReviewService(catalog domain.DestinationCatalog, reviews domain.ReviewRepository, scorer SentimentScorer, logger zerolog.Logger) *ReviewService {
	return &ReviewService{catalog: catalog, reviews: reviews, scorer: scorer, logger: logger}
}

// ProcessReview scores and stores a comment, then recomputes the
// destination's rating and canonical sentiment from all its reviews
func (s *ReviewService) ProcessReview(ctx context.Context, city string, destinationID int64, comment string) (*ReviewResult, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, domain.NewCityError(city, "comment must not be empty", domain.ErrInvalidInput)
	}

	dest, err := s.catalog.GetDestination(ctx, city, destinationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewCityError(city, fmt.Sprintf("destination %d", destinationID), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("review: failed to get destination: %w", err)
	}

	score, err := s.scorer.Score(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("review: failed to score comment: %w", err)
	}

	review, err := s.reviews.SaveReview(ctx, domain.Review{
		DestinationID:  dest.ID,
		City:           city,
		Comment:        comment,
		SentimentScore: score,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("review: failed to save review: %w", err)
	}

	summary, err := s.reviews.SummarizeReviews(ctx, city, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("review: failed to summarize reviews: %w", err)
	}

	result := &ReviewResult{
		Review:      review,
		Rating:      utils.RoundTo(summary.AverageScore, 2),
		ReviewCount: summary.Count,
		Sentiment:   domain.NormalizeSentiment(summary.AverageScore),
	}
	if err := s.catalog.UpdateDestinationSentiment(ctx, dest.ID, result.Rating, result.ReviewCount, result.Sentiment); err != nil {
		return nil, fmt.Errorf("review: failed to update destination sentiment: %w", err)
	}

	s.logger.Info().
		Str("city", city).
		Int64("destination_id", dest.ID).
		Float64("score", score).
		Float64("sentiment", result.Sentiment).
		Msg("review processed")
	return result, nil
}

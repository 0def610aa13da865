package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
)

// DestinationWeather is a destination with the weather observed there
type DestinationWeather struct {
	domain.Destination
	Weather *domain.Weather `json:"weather,omitempty"`
}

// PlannerService is the facade used by the HTTP layer and the batch trainer
type PlannerService struct {
	trainer     *Trainer
	recommender *Recommender
	reviews     *ReviewService
	loader      *DestinationLoader
	weather     WeatherProvider
	repo        DataRepository
	logger      zerolog.Logger

	background []interface{ WaitBackground() }
}

// NewPlannerService creates a new planner service
func NewPlannerService(
	trainer *Trainer,
	recommender *Recommender,
	reviews *ReviewService,
	loader *DestinationLoader,
	weather WeatherProvider,
	repo DataRepository,
	logger zerolog.Logger,
) *PlannerService {
	return &PlannerService{
		trainer:     trainer,
		recommender: recommender,
		reviews:     reviews,
		loader:      loader,
		weather:     weather,
		repo:        repo,
		logger:      logger,
	}
}

// TrackBackground registers a component whose background writes must finish on shutdown
func (s *PlannerService) TrackBackground(w interface{ WaitBackground() }) {
	s.background = append(s.background, w)
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *PlannerService) WaitBackground() {
	for _, w := range s.background {
		w.WaitBackground()
	}
}

// Train runs a training session for a city
func (s *PlannerService) Train(ctx context.Context, city string, episodes int, prefs *domain.Preferences) (*TrainingResult, error) {
	return s.trainer.Train(ctx, city, episodes, prefs)
}

// Recommend returns a route for a city
func (s *PlannerService) Recommend(ctx context.Context, city string, prefs domain.Preferences, steps int) (*domain.Route, error) {
	return s.recommender.Recommend(ctx, city, prefs, steps)
}

// ProcessReview scores and stores a review
func (s *PlannerService) ProcessReview(ctx context.Context, city string, destinationID int64, comment string) (*ReviewResult, error) {
	return s.reviews.ProcessReview(ctx, city, destinationID, comment)
}

// Weather returns current weather for a place name
func (s *PlannerService) Weather(ctx context.Context, location string) (domain.Weather, error) {
	return s.weather.CurrentWeather(ctx, domain.Destination{Name: location, City: location})
}

// Health checks the repository
func (s *PlannerService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

// CityDestinations lists a city's destinations with current weather fetched
// concurrently. Weather failures are logged and leave the field empty.
func (s *PlannerService) CityDestinations(ctx context.Context, city string) ([]DestinationWeather, error) {
	dests, err := s.loader.Load(ctx, city)
	if err != nil {
		return nil, err
	}

	out := make([]DestinationWeather, len(dests))
	var wg sync.WaitGroup
	for i, d := range dests {
		out[i].Destination = d
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := s.weather.CurrentWeather(ctx, d)
			if err != nil {
				s.logger.Warn().Err(err).Str("city", city).Str("destination", d.Name).Msg("destination weather fetch failed")
				return
			}
			out[i].Weather = &w
		}()
	}
	wg.Wait()

	return out, nil
}

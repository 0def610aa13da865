package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
	"github.com/smartcity/routeplanner/pkg/utils"
)

// Recommender derives routes greedily from a trained value table
type Recommender struct {
	loader  *DestinationLoader
	store   *ValueTableStore
	signals SignalSource
	seed    int64
	logger  zerolog.Logger
}

// RecommenderOption configures a Recommender
type RecommenderOption func(*Recommender)

// WithRecommenderSeed fixes the start destination sequence; 0 seeds from the clock
func WithRecommenderSeed(seed int64) RecommenderOption {
	return func(r *Recommender) { r.seed = seed }
}

// NewRecommender creates a recommender
func NewRecommender(loader *DestinationLoader, store *ValueTableStore, signals SignalSource, logger zerolog.Logger, opts ...RecommenderOption) *Recommender {
	r := &Recommender{
		loader:  loader,
		store:   store,
		signals: signals,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend builds a route of at most steps stops that satisfies prefs,
// never repeats a destination and never exceeds the budget
func (r *Recommender) Recommend(ctx context.Context, city string, prefs domain.Preferences, steps int) (*domain.Route, error) {
	route, err := r.recommend(ctx, city, prefs, steps)
	metrics.Recommendations.WithLabelValues(city, recommendOutcome(err)).Inc()
	return route, err
}

func (r *Recommender) recommend(ctx context.Context, city string, prefs domain.Preferences, steps int) (*domain.Route, error) {
	if steps < 1 {
		return nil, domain.NewCityError(city, fmt.Sprintf("steps must be positive, got %d", steps), domain.ErrInvalidInput)
	}

	dests, err := r.loader.Load(ctx, city)
	if err != nil {
		return nil, err
	}
	table, reinitialized, err := r.store.Load(ctx, city, len(dests))
	if err != nil {
		return nil, err
	}
	if reinitialized || table.IsZero() {
		return nil, domain.NewCityError(city, "train the city first", domain.ErrNotTrained)
	}

	var feasible []int
	for i, d := range dests {
		if prefs.Matches(d) {
			feasible = append(feasible, i)
		}
	}
	if len(feasible) == 0 {
		return nil, domain.NewCityError(city, describePreferences(prefs), domain.ErrNoFeasibleDestinations)
	}

	remaining := math.Inf(1)
	if prefs.MaxBudget != nil {
		remaining = *prefs.MaxBudget
	}

	rng := newRand(r.seed)
	current := feasible[rng.Intn(len(feasible))]
	route := &domain.Route{
		ID:          uuid.NewString(),
		City:        city,
		Start:       dests[current].Name,
		Steps:       []domain.RouteStep{},
		GeneratedAt: time.Now(),
	}
	log := r.logger.With().Str("city", city).Str("route_id", route.ID).Logger()

	var (
		visited    = make(map[int64]bool)
		overBudget = make(map[int]bool)
		rejected   = make(map[int]bool) // provider failures from the current state
		limit      = min(steps, len(feasible))
	)
	for attempts := 0; attempts < limit; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recommender: %w", err)
		}

		candidates := make([]int, 0, len(feasible))
		for _, i := range feasible {
			if !visited[dests[i].ID] && !overBudget[i] && !rejected[i] {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			break
		}

		next := table.ArgMaxOf(current, candidates)
		d := dests[next]
		if d.TicketPrice > remaining {
			// the budget only shrinks, so the candidate can never fit again
			overBudget[next] = true
			continue
		}
		attempts++

		obs, err := r.signals.Observe(ctx, dests[current], d)
		if err != nil {
			if !domain.IsSkippable(err) {
				return nil, domain.NewCityError(city, "observe signals", err)
			}
			log.Debug().Err(err).Str("candidate", d.Name).Msg("candidate skipped")
			rejected[next] = true
			continue
		}
		if !obs.Travel.Available() {
			log.Debug().Str("candidate", d.Name).Msg("candidate skipped, travel time unavailable")
			rejected[next] = true
			continue
		}

		route.Steps = append(route.Steps, domain.RouteStep{
			DestinationID:  d.ID,
			Destination:    d.Name,
			Type:           d.Type,
			Weather:        obs.Weather.Description,
			Temperature:    obs.Weather.Temperature,
			TravelTime:     obs.Travel.Duration,
			TravelMinutes:  utils.RoundTo(obs.Travel.Minutes(), 2),
			TicketPrice:    d.TicketPrice,
			SentimentScore: d.Sentiment(),
		})
		route.TotalPrice += d.TicketPrice
		remaining -= d.TicketPrice
		visited[d.ID] = true
		current = next
		clear(rejected)
	}

	if len(route.Steps) == 0 {
		return nil, domain.NewCityError(city, describePreferences(prefs), domain.ErrNoFeasibleRoute)
	}
	log.Info().Int("steps", len(route.Steps)).Float64("total_price", route.TotalPrice).Msg("route recommended")
	return route, nil
}

func describePreferences(p domain.Preferences) string {
	switch {
	case p.PreferredType != "" && p.MaxBudget != nil:
		return fmt.Sprintf("type %q within budget %.0f", p.PreferredType, *p.MaxBudget)
	case p.PreferredType != "":
		return fmt.Sprintf("type %q", p.PreferredType)
	case p.MaxBudget != nil:
		return fmt.Sprintf("budget %.0f", *p.MaxBudget)
	default:
		return ""
	}
}

func recommendOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotTrained):
		return "not_trained"
	case errors.Is(err, domain.ErrNoFeasibleDestinations), errors.Is(err, domain.ErrNoFeasibleRoute):
		return "infeasible"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

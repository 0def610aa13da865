package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
	"github.com/smartcity/routeplanner/internal/qtable"
)

// TrainerConfig holds the Q-learning hyperparameters
type TrainerConfig struct {
	Alpha   float64
	Gamma   float64
	Epsilon float64
	Horizon int

	// Seed fixes the exploration sequence; 0 seeds from the clock
	Seed int64

	// MaxEpisodes caps a single run; 0 means unlimited
	MaxEpisodes int
}

// DefaultTrainerConfig returns α=0.1, γ=0.9, ε=0.1 over 3-step episodes
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Alpha:   0.1,
		Gamma:   0.9,
		Epsilon: 0.1,
		Horizon: 3,
	}
}

// TrainingResult summarises one training run
type TrainingResult struct {
	RunID         string        `json:"run_id"`
	City          string        `json:"city"`
	Episodes      int           `json:"episodes"`
	Updates       int           `json:"updates"`
	Skipped       int           `json:"skipped"`
	Reinitialized bool          `json:"reinitialized"`
	Duration      time.Duration `json:"duration"`
	Table         *qtable.Table `json:"table"`
}

// Trainer runs episodic Q-learning over live signals
type Trainer struct {
	cfg     TrainerConfig
	loader  *DestinationLoader
	store   *ValueTableStore
	signals SignalSource
	reward  RewardFunc
	locker  CityLocker
	logger  zerolog.Logger
}

// TrainerOption configures a Trainer
type TrainerOption func(*Trainer)

// WithReward replaces the reward function
func WithReward(fn RewardFunc) TrainerOption {
	return func(t *Trainer) { t.reward = fn }
}

// WithLocker replaces the in-process city lock
func WithLocker(l CityLocker) TrainerOption {
	return func(t *Trainer) { t.locker = l }
}

// NewTrainer creates a trainer
func NewTrainer(cfg TrainerConfig, loader *DestinationLoader, store *ValueTableStore, signals SignalSource, logger zerolog.Logger, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		cfg:     cfg,
		loader:  loader,
		store:   store,
		signals: signals,
		reward:  Reward,
		locker:  NewKeyedMutex(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Train runs the given number of episodes for a city and persists the table.
// Unavailable signals skip a step; throttling and configuration errors abort
// the run without saving. A save failure returns the result with an
// ErrPersistence error.
func (t *Trainer) Train(ctx context.Context, city string, episodes int, prefs *domain.Preferences) (*TrainingResult, error) {
	if episodes < 1 {
		return nil, domain.NewCityError(city, fmt.Sprintf("episodes must be positive, got %d", episodes), domain.ErrInvalidInput)
	}
	if t.cfg.MaxEpisodes > 0 && episodes > t.cfg.MaxEpisodes {
		return nil, domain.NewCityError(city, fmt.Sprintf("episodes must be at most %d, got %d", t.cfg.MaxEpisodes, episodes), domain.ErrInvalidInput)
	}
	var p domain.Preferences
	if prefs != nil {
		p = *prefs
	}

	unlock, err := t.locker.Lock(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("trainer: failed to lock city %q: %w", city, err)
	}
	defer unlock()

	started := time.Now()
	dests, err := t.loader.Load(ctx, city)
	if err != nil {
		return nil, err
	}
	table, reinitialized, err := t.store.Load(ctx, city, len(dests))
	if err != nil {
		return nil, err
	}

	result := &TrainingResult{
		RunID:         uuid.NewString(),
		City:          city,
		Episodes:      episodes,
		Reinitialized: reinitialized,
		Table:         table,
	}
	log := t.logger.With().Str("city", city).Str("run_id", result.RunID).Logger()
	log.Info().Int("episodes", episodes).Int("destinations", len(dests)).Bool("reinitialized", reinitialized).Msg("training started")

	rng := newRand(t.cfg.Seed)
	n := len(dests)
	for ep := 0; ep < episodes; ep++ {
		state := rng.Intn(n)
		for step := 0; step < t.cfg.Horizon; step++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("trainer: run %s interrupted: %w", result.RunID, err)
			}

			action := table.ArgMax(state)
			if rng.Float64() < t.cfg.Epsilon {
				action = rng.Intn(n)
			}

			obs, err := t.signals.Observe(ctx, dests[state], dests[action])
			if err != nil {
				if !domain.IsSkippable(err) {
					return nil, domain.NewCityError(city, "observe signals", err)
				}
				result.Skipped++
				metrics.TrainingSkips.WithLabelValues(city, "provider_error").Inc()
				log.Debug().Err(err).Int("episode", ep).Int("state", state).Int("action", action).Msg("step skipped")
				continue
			}
			if !obs.Travel.Available() {
				result.Skipped++
				metrics.TrainingSkips.WithLabelValues(city, "travel_unavailable").Inc()
				log.Debug().Int("episode", ep).Int("state", state).Int("action", action).Msg("step skipped, travel time unavailable")
				continue
			}

			r := t.reward(RewardInput{
				Current:     dests[state],
				Candidate:   dests[action],
				Weather:     obs.Weather,
				Travel:      obs.Travel,
				Preferences: p,
			})
			table.Update(state, action, r, t.cfg.Alpha, t.cfg.Gamma)
			result.Updates++
			metrics.TrainingUpdates.WithLabelValues(city).Inc()
			state = action
		}
		metrics.TrainingEpisodes.WithLabelValues(city).Inc()
	}

	result.Duration = time.Since(started)
	if err := t.store.Save(ctx, city, table); err != nil {
		log.Error().Err(err).Msg("failed to persist value table")
		return result, err
	}

	log.Info().
		Int("updates", result.Updates).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("training finished")
	return result, nil
}

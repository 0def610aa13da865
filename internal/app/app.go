// Package app wires configuration, storage and providers into a PlannerService.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/config"
	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/logging"
	"github.com/smartcity/routeplanner/internal/repository/postgres"
	"github.com/smartcity/routeplanner/internal/service"
)

// App holds the long-lived service objects of one process
type App struct {
	Config  *config.Config
	Repo    service.DataRepository
	Planner *service.PlannerService

	closers []func()
}

// Close waits for background writes and releases caches and the pool
func (a *App) Close() {
	if a.Planner != nil {
		a.Planner.WaitBackground()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build constructs the dependency graph. A database that cannot be reached
// falls back to the in-memory repository, as does an empty DATABASE_URL.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.Component("app")
	a := &App{Config: cfg}

	var locker service.CityLocker = service.NewKeyedMutex()
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("could not connect to database, running with in-memory data")
		} else {
			a.closers = append(a.closers, pool.Close)
			pg := postgres.NewPostgresRepository(pool)
			if err := pg.EnsureSchema(ctx); err != nil {
				a.Close()
				return nil, err
			}
			if !cfg.IsProduction() {
				if err := pg.SeedDestinations(ctx, postgres.SampleDestinations()); err != nil {
					log.Warn().Err(err).Msg("failed to seed sample destinations")
				}
			}
			a.Repo = pg
			locker = pg
			log.Info().Msg("connected to PostgreSQL")
		}
	}
	if a.Repo == nil {
		a.Repo = postgres.NewSeededMockRepository()
	}

	weather, travel, scorer, background, err := a.providers(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	p := cfg.Providers
	policy := service.RetryPolicy{
		MaxAttempts: p.RetryMaxAttempts,
		BaseDelay:   p.RetryBaseDelay,
		Multiplier:  p.RetryMultiplier,
		MaxDelay:    p.RetryMaxDelay,
	}
	signals := service.NewSignals(weather, travel, policy, p.Timeout, logging.Component("signals"))
	loader := service.NewDestinationLoader(a.Repo, a.Repo, logging.Component("catalog"))
	store := service.NewValueTableStore(a.Repo, logging.Component("store"))

	l := cfg.Learning
	trainer := service.NewTrainer(service.TrainerConfig{
		Alpha:       l.Alpha,
		Gamma:       l.Gamma,
		Epsilon:     l.Epsilon,
		Horizon:     l.Horizon,
		Seed:        l.Seed,
		MaxEpisodes: cfg.MaxTrainingEpisodes,
	}, loader, store, signals, logging.Component("trainer"), service.WithLocker(locker))

	a.Planner = service.NewPlannerService(
		trainer,
		service.NewRecommender(loader, store, signals, logging.Component("recommender"), service.WithRecommenderSeed(l.Seed)),
		service.NewReviewService(a.Repo, a.Repo, scorer, logging.Component("reviews")),
		loader,
		weather,
		a.Repo,
		logging.Component("planner"),
	)
	for _, w := range background {
		a.Planner.TrackBackground(w)
	}
	return a, nil
}

func (a *App) providers(cfg *config.Config) (service.WeatherProvider, service.TravelTimeProvider, service.SentimentScorer, []interface{ WaitBackground() }, error) {
	if cfg.MockSignals {
		log := logging.Component("app")
		log.Info().Msg("using synthetic weather, estimated travel times and lexicon sentiment")
		return service.NewMockWeatherProvider(), service.NewEstimatedTravelTimeProvider(), service.LexiconSentimentScorer{}, nil, nil
	}

	p := cfg.Providers
	travelCache, err := service.NewRistrettoCache[domain.TravelTime](p.TravelCacheSize)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	a.closers = append(a.closers, travelCache.Close)
	weatherCache, err := service.NewRistrettoCache[domain.Weather](p.TravelCacheSize)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	a.closers = append(a.closers, weatherCache.Close)
	sentimentCache, err := service.NewRistrettoCache[float64](p.TravelCacheSize)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	a.closers = append(a.closers, sentimentCache.Close)

	providerLog := logging.Component("providers")
	weather := service.NewWeatherService(cfg.OpenWeatherAPIKey, providerLog,
		service.WithWeatherCache(weatherCache, p.WeatherCacheTTL),
	)
	travel := service.NewTravelTimeService(cfg.ORSAPIKey, a.Repo, providerLog,
		service.WithORSProfile(cfg.ORSProfile),
		service.WithTravelCache(travelCache, p.TravelCacheTTL),
		service.WithORSRateLimit(p.ORSRatePerMinute),
	)
	scorer := service.NewSentimentBridge(cfg.MLServiceURL, sentimentCache, p.TravelCacheTTL, providerLog)

	warnMissing(providerLog, "OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	warnMissing(providerLog, "ORS_API_KEY", cfg.ORSAPIKey)
	return weather, travel, scorer, []interface{ WaitBackground() }{travel}, nil
}

func warnMissing(log zerolog.Logger, key, value string) {
	if value == "" {
		log.Warn().Str("key", key).Msg("API key not set, training and recommendation will fail with a configuration error")
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
	"github.com/smartcity/routeplanner/pkg/utils"
)

const defaultORSURL = "https://api.openrouteservice.org/v2/directions"

// TravelTimeService resolves travel times through a TTL cache, the
// travel_times table and finally the OpenRouteService directions API
type TravelTimeService struct {
	apiKey     string
	profile    string
	baseURL    string
	httpClient *http.Client
	repo       domain.TravelTimeRepository
	cache      Cache[domain.TravelTime]
	cacheTTL   time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[domain.TravelTime]
	logger     zerolog.Logger

	wgBg sync.WaitGroup // tracks background saves for graceful shutdown
}

// TravelOption configures a TravelTimeService
type TravelOption func(*TravelTimeService)

// WithORSBaseURL overrides the directions endpoint
func WithORSBaseURL(u string) TravelOption {
	return func(s *TravelTimeService) { s.baseURL = u }
}

// WithORSProfile sets the routing profile, e.g. driving-car or foot-walking
func WithORSProfile(profile string) TravelOption {
	return func(s *TravelTimeService) {
		if profile != "" {
			s.profile = profile
		}
	}
}

// WithTravelCache enables the in-memory cache layer
func WithTravelCache(c Cache[domain.TravelTime], ttl time.Duration) TravelOption {
	return func(s *TravelTimeService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithORSRateLimit caps outgoing API requests per minute; 0 disables the limit
func WithORSRateLimit(perMinute int) TravelOption {
	return func(s *TravelTimeService) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithTravelHTTPClient replaces the HTTP client
func WithTravelHTTPClient(c *http.Client) TravelOption {
	return func(s *TravelTimeService) { s.httpClient = c }
}

// NewTravelTimeService creates a travel time service. repo may be nil.
func NewTravelTimeService(apiKey string, repo domain.TravelTimeRepository, logger zerolog.Logger, opts ...TravelOption) *TravelTimeService {
	s := &TravelTimeService{
		apiKey:  apiKey,
		profile: "driving-car",
		baseURL: defaultORSURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		repo:   repo,
		logger: logger.With().Str("provider", "openrouteservice").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = newProviderBreaker[domain.TravelTime]("openrouteservice", s.logger)
	return s
}

// WaitBackground blocks until pending travel time saves complete
func (s *TravelTimeService) WaitBackground() {
	s.wgBg.Wait()
}

func travelCacheKey(from, to domain.Destination) string {
	return fmt.Sprintf("%s:%d:%d", from.City, from.ID, to.ID)
}

// TravelTime implements TravelTimeProvider
func (s *TravelTimeService) TravelTime(ctx context.Context, from, to domain.Destination) (domain.TravelTime, error) {
	if from.ID == to.ID {
		return domain.TravelTimeFromSeconds(0), nil
	}

	key := travelCacheKey(from, to)
	if s.cache != nil {
		if t, ok := s.cache.Get(key); ok {
			metrics.ObserveCache("travel_time", true)
			return t, nil
		}
		metrics.ObserveCache("travel_time", false)
	}

	if s.repo != nil {
		t, err := s.repo.GetTravelTime(ctx, from.City, from.ID, to.ID)
		switch {
		case err == nil:
			s.remember(key, t)
			return t, nil
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.Warn().Err(err).Str("key", key).Msg("travel time lookup failed, falling back to API")
		}
	}

	if s.apiKey == "" {
		return domain.TravelTime{}, fmt.Errorf("travel: ORS_API_KEY not set: %w", domain.ErrConfiguration)
	}
	if !from.HasCoordinates() || !to.HasCoordinates() {
		s.logger.Warn().Str("from", from.Name).Str("to", to.Name).Msg("missing coordinates, travel time unavailable")
		return domain.UnavailableTravelTime(), nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.TravelTime{}, fmt.Errorf("travel: rate limiter: %w: %w", domain.ErrProviderUnavailable, err)
		}
	}

	started := time.Now()
	t, err := s.breaker.Execute(func() (domain.TravelTime, error) {
		return s.request(ctx, from, to)
	})
	err = breakerError("travel", err)
	metrics.ObserveProvider("travel_time", outcomeOf(err), started)

	if errors.Is(err, domain.ErrNotFound) {
		return domain.UnavailableTravelTime(), nil
	}
	if err != nil {
		return domain.TravelTime{}, err
	}

	s.remember(key, t)
	s.persist(from, to, t)
	return t, nil
}

func (s *TravelTimeService) remember(key string, t domain.TravelTime) {
	if s.cache != nil && t.Available() {
		s.cache.Set(key, t, s.cacheTTL)
	}
}

func (s *TravelTimeService) persist(from, to domain.Destination, t domain.TravelTime) {
	if s.repo == nil {
		return
	}
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveTravelTime(bgCtx, from.City, from.ID, to.ID, t); err != nil {
			s.logger.Error().Err(err).Str("from", from.Name).Str("to", to.Name).Msg("failed to save travel time")
		}
	}()
}

type orsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type orsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Duration float64 `json:"duration"`
				Distance float64 `json:"distance"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

func (s *TravelTimeService) request(ctx context.Context, from, to domain.Destination) (domain.TravelTime, error) {
	body, err := json.Marshal(orsRequest{Coordinates: [][2]float64{
		{*from.Longitude, *from.Latitude},
		{*to.Longitude, *to.Latitude},
	}})
	if err != nil {
		return domain.TravelTime{}, fmt.Errorf("travel: failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/geojson", s.baseURL, s.profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.TravelTime{}, fmt.Errorf("travel: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.TravelTime{}, fmt.Errorf("travel: %w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError("travel", resp.StatusCode); err != nil {
		return domain.TravelTime{}, err
	}

	var out orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.TravelTime{}, fmt.Errorf("travel: failed to decode response: %w: %w", domain.ErrProviderUnavailable, err)
	}
	if len(out.Features) == 0 {
		return domain.TravelTime{}, fmt.Errorf("travel: no route features: %w", domain.ErrNotFound)
	}
	return domain.TravelTimeFromSeconds(out.Features[0].Properties.Summary.Duration), nil
}

// EstimatedTravelTimeProvider derives travel times from straight-line distance
type EstimatedTravelTimeProvider struct {
	SpeedKmh float64
}

// NewEstimatedTravelTimeProvider creates an estimator at an average city speed of 30 km/h
func NewEstimatedTravelTimeProvider() *EstimatedTravelTimeProvider {
	return &EstimatedTravelTimeProvider{SpeedKmh: 30}
}

// TravelTime implements TravelTimeProvider
func (e *EstimatedTravelTimeProvider) TravelTime(ctx context.Context, from, to domain.Destination) (domain.TravelTime, error) {
	if !from.HasCoordinates() || !to.HasCoordinates() {
		return domain.UnavailableTravelTime(), nil
	}
	km := utils.Haversine(*from.Latitude, *from.Longitude, *to.Latitude, *to.Longitude)
	t := domain.TravelTimeFromSeconds(utils.RoundTo(utils.TravelSeconds(km, e.SpeedKmh), 0))
	t.IsMock = true
	return t, nil
}

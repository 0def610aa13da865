package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
)

const defaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// WeatherService fetches current weather from OpenWeatherMap
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      Cache[domain.Weather]
	cacheTTL   time.Duration
	breaker    *gobreaker.CircuitBreaker[domain.Weather]
	logger     zerolog.Logger
}

// WeatherOption configures a WeatherService
type WeatherOption func(*WeatherService)

// WithWeatherBaseURL overrides the OpenWeatherMap endpoint
func WithWeatherBaseURL(u string) WeatherOption {
	return func(s *WeatherService) { s.baseURL = u }
}

// WithWeatherCache caches observations per location
func WithWeatherCache(c Cache[domain.Weather], ttl time.Duration) WeatherOption {
	return func(s *WeatherService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithWeatherHTTPClient replaces the HTTP client
func WithWeatherHTTPClient(c *http.Client) WeatherOption {
	return func(s *WeatherService) { s.httpClient = c }
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey string, logger zerolog.Logger, opts ...WeatherOption) *WeatherService {
	s := &WeatherService{
		apiKey:  apiKey,
		baseURL: defaultOpenWeatherURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("provider", "openweathermap").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = newProviderBreaker[domain.Weather]("openweathermap", s.logger)
	return s
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity int      `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

// CurrentWeather fetches weather at the destination's coordinates, or for
// its city when coordinates are unknown
func (s *WeatherService) CurrentWeather(ctx context.Context, dest domain.Destination) (domain.Weather, error) {
	params := url.Values{}
	var key string
	if dest.HasCoordinates() {
		lat := strconv.FormatFloat(*dest.Latitude, 'f', 4, 64)
		lon := strconv.FormatFloat(*dest.Longitude, 'f', 4, 64)
		params.Set("lat", lat)
		params.Set("lon", lon)
		key = lat + "," + lon
	} else {
		params.Set("q", dest.City)
		key = dest.City
	}
	w, err := s.fetch(ctx, key, params)
	if err != nil {
		return domain.Weather{}, err
	}
	w.Location = dest.Name
	return w, nil
}

func (s *WeatherService) fetch(ctx context.Context, key string, params url.Values) (domain.Weather, error) {
	if s.apiKey == "" {
		return domain.Weather{}, fmt.Errorf("weather: OPENWEATHER_API_KEY not set: %w", domain.ErrConfiguration)
	}
	if s.cache != nil {
		if w, ok := s.cache.Get(key); ok {
			metrics.ObserveCache("weather", true)
			return w, nil
		}
		metrics.ObserveCache("weather", false)
	}

	started := time.Now()
	w, err := s.breaker.Execute(func() (domain.Weather, error) {
		return s.request(ctx, params)
	})
	err = breakerError("weather", err)
	metrics.ObserveProvider("weather", outcomeOf(err), started)
	if err != nil {
		return domain.Weather{}, err
	}

	w.Location = key
	if s.cache != nil {
		s.cache.Set(key, w, s.cacheTTL)
	}
	return w, nil
}

func (s *WeatherService) request(ctx context.Context, params url.Values) (domain.Weather, error) {
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: %w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError("weather", resp.StatusCode); err != nil {
		return domain.Weather{}, err
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to decode response: %w: %w", domain.ErrProviderUnavailable, err)
	}

	weather := domain.Weather{
		Temperature: owResp.Main.Temp,
		Humidity:    owResp.Main.Humidity,
		WindSpeed:   owResp.Wind.Speed,
		Timestamp:   time.Now(),
	}
	if len(owResp.Weather) > 0 {
		weather.Description = owResp.Weather[0].Description
		weather.Icon = owResp.Weather[0].Icon
	}
	return weather, nil
}

// statusError classifies a non-200 provider response
func statusError(provider string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status %d: %w", provider, code, domain.ErrRateLimited)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: status %d: %w", provider, code, domain.ErrNotFound)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: status %d, check API key: %w", provider, code, domain.ErrConfiguration)
	default:
		return fmt.Errorf("%s: status %d: %w", provider, code, domain.ErrProviderUnavailable)
	}
}

// MockWeatherProvider returns seasonal synthetic weather
type MockWeatherProvider struct {
	now func() time.Time
}

// NewMockWeatherProvider creates a mock provider on the wall clock
func NewMockWeatherProvider() *MockWeatherProvider {
	return &MockWeatherProvider{now: time.Now}
}

// CurrentWeather implements WeatherProvider
func (m *MockWeatherProvider) CurrentWeather(ctx context.Context, dest domain.Destination) (domain.Weather, error) {
	now := m.now()
	var temp float64
	var description string

	// highland dry season runs December to April
	switch month := now.Month(); {
	case month == time.December || month <= time.April:
		temp, description = 18, "clear sky"
	case month <= time.August:
		temp, description = 21, "light rain"
	default:
		temp, description = 19, "overcast clouds"
	}

	return domain.Weather{
		Description: description,
		Temperature: &temp,
		Humidity:    80,
		WindSpeed:   2.5,
		Icon:        "04d",
		Location:    dest.Name,
		Timestamp:   now,
		IsMock:      true,
	}, nil
}

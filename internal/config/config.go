// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings
type Config struct {
	DatabaseURL       string
	OpenWeatherAPIKey string
	ORSAPIKey         string
	ORSProfile        string
	MLServiceURL      string
	Port              string
	Env               string
	LogLevel          string
	LogFormat         string
	MockSignals       bool

	Learning  LearningConfig
	Providers ProviderConfig

	MaxTrainingEpisodes int
}

// LearningConfig holds Q-learning hyperparameters
type LearningConfig struct {
	Alpha   float64
	Gamma   float64
	Epsilon float64
	Horizon int
	Seed    int64
}

// ProviderConfig holds timeouts, retry and cache settings for external signals
type ProviderConfig struct {
	Timeout          time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
	RetryMaxDelay    time.Duration
	TravelCacheTTL   time.Duration
	TravelCacheSize  int
	WeatherCacheTTL  time.Duration
	ORSRatePerMinute int
}

// Load reads a .env file when present, then the process environment
func Load() *Config {
	// a missing .env file is normal outside local development
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		ORSAPIKey:         getEnv("ORS_API_KEY", ""),
		ORSProfile:        getEnv("ORS_PROFILE", "driving-car"),
		MLServiceURL:      getEnv("ML_SERVICE_URL", "http://localhost:8000"),
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("GO_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		MockSignals:       getEnvBool("MOCK_SIGNALS", false),
		Learning: LearningConfig{
			Alpha:   getEnvFloat("QL_ALPHA", 0.1),
			Gamma:   getEnvFloat("QL_GAMMA", 0.9),
			Epsilon: getEnvFloat("QL_EPSILON", 0.1),
			Horizon: getEnvInt("QL_HORIZON", 3),
			Seed:    int64(getEnvInt("QL_SEED", 0)),
		},
		Providers: ProviderConfig{
			Timeout:          getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
			RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 5),
			RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
			RetryMultiplier:  getEnvFloat("RETRY_MULTIPLIER", 2),
			RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", time.Minute),
			TravelCacheTTL:   getEnvDuration("TRAVEL_CACHE_TTL", time.Hour),
			TravelCacheSize:  getEnvInt("TRAVEL_CACHE_SIZE", 1000),
			WeatherCacheTTL:  getEnvDuration("WEATHER_CACHE_TTL", 10*time.Minute),
			ORSRatePerMinute: getEnvInt("ORS_RATE_PER_MINUTE", 40),
		},
		MaxTrainingEpisodes: getEnvInt("MAX_TRAINING_EPISODES", 10000),
	}
}

// Validate rejects settings the trainer and providers cannot work with
func (c *Config) Validate() error {
	l := c.Learning
	if l.Alpha <= 0 || l.Alpha > 1 {
		return fmt.Errorf("config: QL_ALPHA must be in (0,1], got %v", l.Alpha)
	}
	if l.Gamma < 0 || l.Gamma > 1 {
		return fmt.Errorf("config: QL_GAMMA must be in [0,1], got %v", l.Gamma)
	}
	if l.Epsilon < 0 || l.Epsilon > 1 {
		return fmt.Errorf("config: QL_EPSILON must be in [0,1], got %v", l.Epsilon)
	}
	if l.Horizon < 1 {
		return fmt.Errorf("config: QL_HORIZON must be >= 1, got %d", l.Horizon)
	}
	p := c.Providers
	if p.RetryMaxAttempts < 1 {
		return fmt.Errorf("config: RETRY_MAX_ATTEMPTS must be >= 1, got %d", p.RetryMaxAttempts)
	}
	if p.RetryMultiplier < 1 {
		return fmt.Errorf("config: RETRY_MULTIPLIER must be >= 1, got %v", p.RetryMultiplier)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("config: PROVIDER_TIMEOUT must be positive, got %s", p.Timeout)
	}
	if p.TravelCacheSize < 1 {
		return fmt.Errorf("config: TRAVEL_CACHE_SIZE must be >= 1, got %d", p.TravelCacheSize)
	}
	if c.MaxTrainingEpisodes < 1 {
		return fmt.Errorf("config: MAX_TRAINING_EPISODES must be >= 1, got %d", c.MaxTrainingEpisodes)
	}
	return nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

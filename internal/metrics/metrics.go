// Package metrics holds the prometheus collectors of the route planner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainingEpisodes counts completed training episodes
	TrainingEpisodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_training_episodes_total",
			Help: "Total number of completed training episodes",
		},
		[]string{"city"},
	)

	// TrainingUpdates counts value table updates
	TrainingUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_training_updates_total",
			Help: "Total number of value table updates",
		},
		[]string{"city"},
	)

	// TrainingSkips counts training steps skipped because a signal was unusable
	TrainingSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_training_skipped_steps_total",
			Help: "Total number of training steps skipped on provider errors or unavailable travel time",
		},
		[]string{"city", "reason"},
	)

	// Recommendations counts recommendation calls by outcome
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_recommendations_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"city", "outcome"},
	)

	// ProviderRequests counts external provider attempts by outcome
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_provider_requests_total",
			Help: "Total number of external signal provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderRetries counts retried provider attempts
	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_provider_retries_total",
			Help: "Total number of retried external provider attempts",
		},
		[]string{"provider"},
	)

	// ProviderLatency observes provider call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routeplanner_provider_duration_seconds",
			Help:    "External signal provider latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// CacheLookups counts cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routeplanner_cache_lookups_total",
			Help: "Total number of signal cache lookups",
		},
		[]string{"cache", "result"},
	)
)

// ObserveProvider records one provider attempt
func ObserveProvider(provider, outcome string, started time.Time) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache lookup
func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

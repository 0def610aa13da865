package service

import (
	"github.com/smartcity/routeplanner/internal/domain"
)

// RewardWeights are the coefficients of the additive reward
type RewardWeights struct {
	Clear         float64
	Rain          float64
	Temperature   float64
	TravelMinute  float64
	PreferredType float64
	PriceDivisor  float64
	Popularity    float64
	Sentiment     float64

	// UseSentiment toggles the sentiment term
	UseSentiment bool
}

// DefaultRewardWeights returns the production weights
func DefaultRewardWeights() RewardWeights {
	return RewardWeights{
		Clear:         10,
		Rain:          -5,
		Temperature:   0.2,
		TravelMinute:  -0.5,
		PreferredType: 15,
		PriceDivisor:  10000,
		Popularity:    2,
		Sentiment:     10,
		UseSentiment:  true,
	}
}

// RewardInput is everything the reward of one move depends on
type RewardInput struct {
	Current     domain.Destination
	Candidate   domain.Destination
	Weather     domain.Weather
	Travel      domain.TravelTime
	Preferences domain.Preferences
}

// RewardFunc scores a move. Implementations must be pure.
type RewardFunc func(RewardInput) float64

// NewReward builds the additive reward with the given weights
func NewReward(w RewardWeights) RewardFunc {
	return func(in RewardInput) float64 {
		var r float64
		if in.Weather.IsClear() {
			r += w.Clear
		}
		if in.Weather.IsRainy() {
			r += w.Rain
		}
		r += in.Weather.TemperatureOrZero() * w.Temperature
		r += in.Travel.Minutes() * w.TravelMinute
		if in.Preferences.PreferredType != "" && in.Preferences.PreferredType == in.Candidate.Type {
			r += w.PreferredType
		}
		if w.PriceDivisor != 0 {
			r -= in.Candidate.TicketPrice / w.PriceDivisor
		}
		r += in.Candidate.Popularity * w.Popularity
		if w.UseSentiment {
			r += in.Candidate.Sentiment() * w.Sentiment
		}
		return r
	}
}

// Reward scores a move with DefaultRewardWeights
var Reward = NewReward(DefaultRewardWeights())

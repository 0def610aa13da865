package domain

import (
	"time"

	"github.com/smartcity/routeplanner/pkg/utils"
)

// Destination is one visitable place in a city.
// Within a city the catalog order is the state index of the value table.
type Destination struct {
	ID             int64    `json:"id"`
	City           string   `json:"city"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	TicketPrice    float64  `json:"ticket_price"`
	Popularity     float64  `json:"popularity"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"review_count"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known
func (d Destination) HasCoordinates() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// Sentiment returns the canonical [-1,1] sentiment, or 0 when absent
func (d Destination) Sentiment() float64 {
	if d.SentimentScore == nil {
		return 0
	}
	return *d.SentimentScore
}

// Review rating scale used by the sentiment model
const (
	MinReviewScore = 0.0
	MaxReviewScore = 5.0
)

// NormalizeSentiment rescales a [0,5] review score to the canonical [-1,1] range
func NormalizeSentiment(score float64) float64 {
	score = utils.Clamp(score, MinReviewScore, MaxReviewScore)
	return utils.RoundTo(utils.Lerp(-1, 1, score/MaxReviewScore), 4)
}

// Preferences are the user's constraints for a recommendation or training run
type Preferences struct {
	PreferredType string   `json:"preferred_type,omitempty"`
	MaxBudget     *float64 `json:"max_budget,omitempty"`
}

// Matches reports whether d satisfies the type filter and fits within the budget
func (p Preferences) Matches(d Destination) bool {
	if p.PreferredType != "" && d.Type != p.PreferredType {
		return false
	}
	if p.MaxBudget != nil && d.TicketPrice > *p.MaxBudget {
		return false
	}
	return true
}

// RouteStep is one recommended stop with the signals observed when it was chosen
type RouteStep struct {
	DestinationID  int64    `json:"destination_id"`
	Destination    string   `json:"destination"`
	Type           string   `json:"type"`
	Weather        string   `json:"weather"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TravelTime     string   `json:"travel_time"`
	TravelMinutes  float64  `json:"travel_minutes"`
	TicketPrice    float64  `json:"ticket_price"`
	SentimentScore float64  `json:"sentiment_score"`
}

// Route is an ordered recommendation. It is never persisted.
type Route struct {
	ID          string      `json:"id"`
	City        string      `json:"city"`
	Start       string      `json:"start"`
	Steps       []RouteStep `json:"steps"`
	TotalPrice  float64     `json:"total_price"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Review is a visitor comment scored by the sentiment model on the [0,5] scale
type Review struct {
	ID             int64     `json:"id"`
	DestinationID  int64     `json:"destination_id"`
	City           string    `json:"city"`
	Comment        string    `json:"comment"`
	SentimentScore float64   `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewSummary aggregates the scored reviews of one destination
type ReviewSummary struct {
	AverageScore float64
	Count        int
}

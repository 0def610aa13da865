package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/metrics"
	"github.com/smartcity/routeplanner/pkg/utils"
)

// maxCommentRunes is the longest input the sentiment model accepts
const maxCommentRunes = 512

// SentimentBridge scores review comments through the Python ML service
type SentimentBridge struct {
	serviceURL string
	httpClient *http.Client
	cache      Cache[float64]
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewSentimentBridge creates a new sentiment bridge. cache may be nil.
func NewSentimentBridge(serviceURL string, cache Cache[float64], cacheTTL time.Duration, logger zerolog.Logger) *SentimentBridge {
	return &SentimentBridge{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("provider", "sentiment").Logger(),
	}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Score float64 `json:"score"`
}

// prepareComment trims whitespace and truncates to the model input limit
func prepareComment(comment string) string {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) <= maxCommentRunes {
		return comment
	}
	return string([]rune(comment)[:maxCommentRunes])
}

// Score returns the sentiment of a comment on the [0,5] review scale
func (b *SentimentBridge) Score(ctx context.Context, comment string) (float64, error) {
	text := prepareComment(comment)
	if text == "" {
		return 0, nil
	}
	if b.cache != nil {
		if score, ok := b.cache.Get(text); ok {
			metrics.ObserveCache("sentiment", true)
			return score, nil
		}
		metrics.ObserveCache("sentiment", false)
	}

	body, err := json.Marshal(sentimentRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("sentiment: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/sentiment", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("sentiment: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.logger.Warn().Err(err).Msg("sentiment service unreachable")
		err = fmt.Errorf("sentiment: %w: %w", domain.ErrProviderUnavailable, err)
		metrics.ObserveProvider("sentiment", outcomeOf(err), started)
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("sentiment: status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
		metrics.ObserveProvider("sentiment", outcomeOf(err), started)
		return 0, err
	}

	var out sentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		err = fmt.Errorf("sentiment: failed to decode response: %w: %w", domain.ErrProviderUnavailable, err)
		metrics.ObserveProvider("sentiment", outcomeOf(err), started)
		return 0, err
	}
	metrics.ObserveProvider("sentiment", outcomeOf(nil), started)

	score := utils.Clamp(out.Score, domain.MinReviewScore, domain.MaxReviewScore)
	if b.cache != nil {
		b.cache.Set(text, score, b.cacheTTL)
	}
	return score, nil
}

// Health checks ML service connectivity
func (b *SentimentBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("sentiment: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sentiment: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sentiment: health check returned status %d", resp.StatusCode)
	}

	return nil
}

// LexiconSentimentScorer is the offline fallback used with mock signals.
// It counts positive and negative keywords and maps the balance onto [0,5].
type LexiconSentimentScorer struct{}

var (
	positiveWords = []string{"beautiful", "great", "amazing", "love", "wonderful", "clean", "friendly", "good", "peaceful"}
	negativeWords = []string{"dirty", "crowded", "bad", "terrible", "expensive", "boring", "rude", "noisy", "awful"}
)

// Score implements SentimentScorer
func (LexiconSentimentScorer) Score(ctx context.Context, comment string) (float64, error) {
	text := strings.ToLower(prepareComment(comment))
	if text == "" {
		return 0, nil
	}
	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}
	if pos+neg == 0 {
		return 2.5, nil
	}
	return utils.RoundTo(domain.MaxReviewScore*float64(pos)/float64(pos+neg), 2), nil
}

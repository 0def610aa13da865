package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/routeplanner/internal/domain"
)

func TestSentimentBridgeScore(t *testing.T) {
	var calls atomic.Int32
	var lastLen atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req sentimentRequest
		if r.URL.Path != "/sentiment" || json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		lastLen.Store(int32(utf8.RuneCountInString(req.Text)))
		score := 4.2
		if strings.Contains(req.Text, "awful") {
			score = 7 // out of range, must be clamped
		}
		json.NewEncoder(w).Encode(sentimentResponse{Score: score})
	}))
	defer srv.Close()

	bridge := NewSentimentBridge(srv.URL+"/", newMapCache[float64](), time.Hour, zerolog.Nop())

	score, err := bridge.Score(context.Background(), "  Beautiful view over the lake ")
	require.NoError(t, err)
	require.Equal(t, 4.2, score)

	_, err = bridge.Score(context.Background(), "Beautiful view over the lake")
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	score, err = bridge.Score(context.Background(), "awful")
	require.NoError(t, err)
	require.Equal(t, domain.MaxReviewScore, score)

	_, err = bridge.Score(context.Background(), strings.Repeat("ạ", 600))
	require.NoError(t, err)
	require.EqualValues(t, maxCommentRunes, lastLen.Load())

	score, err = bridge.Score(context.Background(), "   ")
	require.NoError(t, err)
	require.Zero(t, score)
	require.EqualValues(t, 3, calls.Load())
}

func TestSentimentBridgeFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	bridge := NewSentimentBridge(srv.URL, nil, 0, zerolog.Nop())
	_, err := bridge.Score(context.Background(), "nice")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	require.NoError(t, bridge.Health(context.Background()))

	down := NewSentimentBridge("http://127.0.0.1:1", nil, 0, zerolog.Nop())
	_, err = down.Score(context.Background(), "nice")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	require.Error(t, down.Health(context.Background()))
}

func TestLexiconSentimentScorer(t *testing.T) {
	var s LexiconSentimentScorer
	tests := []struct {
		comment string
		want    float64
	}{
		{"", 0},
		{"we went there", 2.5},
		{"Beautiful and peaceful", 5},
		{"dirty and crowded", 0},
		{"great view but crowded", 2.5},
	}
	for _, tt := range tests {
		got, err := s.Score(context.Background(), tt.comment)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, tt.comment)
	}
}

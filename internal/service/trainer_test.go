package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/qtable"
)

func TestTrainSkippedStepsLeaveTableUnchanged(t *testing.T) {
	seed := [][]float64{
		{1.5, -2, 0.25},
		{0, 3, -1},
		{4, 0.5, 2},
	}

	tests := []struct {
		name    string
		signals *fakeSignals
	}{
		{"provider errors", constantSignals(Observation{}, domain.ErrProviderUnavailable)},
		{"not found", constantSignals(Observation{}, domain.ErrNotFound)},
		{"travel unavailable", constantSignals(Observation{
			Weather: domain.Weather{Description: "clear sky"},
			Travel:  domain.UnavailableTravelTime(),
		}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			repo.dests["X"] = destinations("X", "A", "B", "C")
			repo.tables["X"] = copyRows(seed)

			result, err := newTestTrainer(repo, tt.signals, seededConfig(1)).Train(context.Background(), "X", 50, nil)
			require.NoError(t, err)
			require.Zero(t, result.Updates)
			require.Equal(t, 150, result.Skipped)
			require.False(t, result.Reinitialized)
			require.Equal(t, seed, repo.table("X"))
			require.Equal(t, 150, tt.signals.callCount())
		})
	}
}

func TestTrainConvergesOnDominantAction(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = destinations("X", "A", "B", "C")

	reward := func(in RewardInput) float64 {
		if in.Candidate.Name == "C" {
			return 10
		}
		return -10
	}
	trainer := newTestTrainer(repo, clearSkySignals(), seededConfig(42), WithReward(reward))

	result, err := trainer.Train(context.Background(), "X", 500, nil)
	require.NoError(t, err)
	require.Equal(t, 1500, result.Updates)

	for s := 0; s < 3; s++ {
		require.Equal(t, 2, result.Table.ArgMax(s), "state %d: %v", s, result.Table.Rows()[s])
	}
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	run := func() *qtable.Table {
		repo := newMemRepo()
		repo.dests["X"] = destinations("X", "A", "B", "C")
		result, err := newTestTrainer(repo, clearSkySignals(), seededConfig(7)).Train(context.Background(), "X", 200, nil)
		require.NoError(t, err)
		stored, err := qtable.FromRows(repo.table("X"))
		require.NoError(t, err)
		require.True(t, stored.Equal(result.Table, 0))
		return result.Table
	}

	first, second := run(), run()
	require.False(t, first.IsZero())
	require.True(t, first.Equal(second, 0))
	for s := 0; s < 3; s++ {
		require.Equal(t, first.ArgMax(s), second.ArgMax(s))
	}
}

func TestTrainPreferredTypeRaisesReward(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = []domain.Destination{
		{ID: 1, City: "X", Name: "A", Type: "natural"},
		{ID: 2, City: "X", Name: "B", Type: "cultural"},
	}
	prefs := &domain.Preferences{PreferredType: "cultural"}
	cfg := seededConfig(3)
	cfg.Epsilon = 1

	result, err := newTestTrainer(repo, clearSkySignals(), cfg).Train(context.Background(), "X", 300, prefs)
	require.NoError(t, err)
	for s := 0; s < 2; s++ {
		require.Greater(t, result.Table.At(s, 1), result.Table.At(s, 0))
	}
}

func TestTrainReinitializesStaleTable(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = destinations("X", "A", "B", "C")
	repo.tables["X"] = [][]float64{{1, 2}, {3, 4}}

	result, err := newTestTrainer(repo, clearSkySignals(), seededConfig(1)).Train(context.Background(), "X", 5, nil)
	require.NoError(t, err)
	require.True(t, result.Reinitialized)
	require.Len(t, repo.table("X"), 3)
	for _, row := range repo.table("X") {
		require.Len(t, row, 3)
	}
}

func TestTrainSurfacesPersistenceFailure(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = destinations("X", "A", "B")
	repo.putTableErr = errors.New("disk full")

	result, err := newTestTrainer(repo, clearSkySignals(), seededConfig(1)).Train(context.Background(), "X", 10, nil)
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NotNil(t, result)
	require.Equal(t, 30, result.Updates)
	require.False(t, result.Table.IsZero())
}

func TestTrainAbortsOnFatalProviderErrors(t *testing.T) {
	for _, sentinel := range []error{domain.ErrRateLimited, domain.ErrConfiguration} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			repo := newMemRepo()
			repo.dests["X"] = destinations("X", "A", "B")
			signals := constantSignals(Observation{}, sentinel)

			result, err := newTestTrainer(repo, signals, seededConfig(1)).Train(context.Background(), "X", 10, nil)
			require.ErrorIs(t, err, sentinel)
			require.Nil(t, result)
			require.Zero(t, repo.puts)
			require.Equal(t, 1, signals.callCount())
		})
	}
}

func TestTrainRejectsInvalidInput(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = destinations("X", "A", "B")
	cfg := seededConfig(1)
	cfg.MaxEpisodes = 10
	trainer := newTestTrainer(repo, clearSkySignals(), cfg)

	_, err := trainer.Train(context.Background(), "X", 0, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = trainer.Train(context.Background(), "X", 11, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = trainer.Train(context.Background(), "Nowhere", 5, nil)
	require.ErrorIs(t, err, domain.ErrUnknownCity)
	var cityErr *domain.CityError
	require.ErrorAs(t, err, &cityErr)
	require.Equal(t, "Nowhere", cityErr.City)
}

func TestTrainStopsOnCanceledContext(t *testing.T) {
	repo := newMemRepo()
	repo.dests["X"] = destinations("X", "A", "B")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestTrainer(repo, clearSkySignals(), seededConfig(1)).Train(ctx, "X", 10, nil)
	require.Error(t, err)
	require.Zero(t, repo.puts)
}

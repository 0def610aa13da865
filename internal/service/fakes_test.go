package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
)

// memRepo is an in-memory DataRepository with failure injection
type memRepo struct {
	mu sync.Mutex

	dests   map[string][]domain.Destination
	tables  map[string][][]float64
	travel  map[string]domain.TravelTime
	reviews []domain.Review

	getTableErr error
	putTableErr error
	puts        int
	updates     int
}

func newMemRepo() *memRepo {
	return &memRepo{
		dests:  make(map[string][]domain.Destination),
		tables: make(map[string][][]float64),
		travel: make(map[string]domain.TravelTime),
	}
}

func (r *memRepo) ListDestinations(ctx context.Context, city string) ([]domain.Destination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.dests[city]
	if !ok {
		return nil, domain.ErrUnknownCity
	}
	return append([]domain.Destination(nil), ds...), nil
}

func (r *memRepo) GetDestination(ctx context.Context, city string, id int64) (domain.Destination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.dests[city] {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Destination{}, domain.ErrNotFound
}

func (r *memRepo) UpdateDestinationSentiment(ctx context.Context, id int64, rating float64, count int, sentiment float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	for city, ds := range r.dests {
		for i := range ds {
			if ds[i].ID == id {
				s := sentiment
				r.dests[city][i].Rating = rating
				r.dests[city][i].ReviewCount = count
				r.dests[city][i].SentimentScore = &s
			}
		}
	}
	return nil
}

func (r *memRepo) GetValueTable(ctx context.Context, city string) ([][]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getTableErr != nil {
		return nil, r.getTableErr
	}
	rows, ok := r.tables[city]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRows(rows), nil
}

func (r *memRepo) PutValueTable(ctx context.Context, city string, rows [][]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	if r.putTableErr != nil {
		return r.putTableErr
	}
	r.tables[city] = copyRows(rows)
	return nil
}

func (r *memRepo) GetTravelTime(ctx context.Context, city string, fromID, toID int64) (domain.TravelTime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.travel[fmt.Sprintf("%s:%d:%d", city, fromID, toID)]
	if !ok {
		return domain.TravelTime{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *memRepo) SaveTravelTime(ctx context.Context, city string, fromID, toID int64, t domain.TravelTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.travel[fmt.Sprintf("%s:%d:%d", city, fromID, toID)] = t
	return nil
}

func (r *memRepo) SaveReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv.ID = int64(len(r.reviews) + 1)
	r.reviews = append(r.reviews, rv)
	return rv, nil
}

func (r *memRepo) SummarizeReviews(ctx context.Context, city string, id int64) (domain.ReviewSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum domain.ReviewSummary
	var total float64
	for _, rv := range r.reviews {
		if rv.City == city && rv.DestinationID == id {
			total += rv.SentimentScore
			sum.Count++
		}
	}
	if sum.Count > 0 {
		sum.AverageScore = total / float64(sum.Count)
	}
	return sum, nil
}

func (r *memRepo) Health(ctx context.Context) error { return nil }

func (r *memRepo) table(city string) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyRows(r.tables[city])
}

func copyRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// fakeSignals answers Observe with a function of the move
type fakeSignals struct {
	mu    sync.Mutex
	calls int
	fn    func(from, to domain.Destination) (Observation, error)
}

func (f *fakeSignals) Observe(ctx context.Context, from, to domain.Destination) (Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(from, to)
}

func (f *fakeSignals) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func constantSignals(obs Observation, err error) *fakeSignals {
	return &fakeSignals{fn: func(from, to domain.Destination) (Observation, error) { return obs, err }}
}

func clearSkySignals() *fakeSignals {
	return constantSignals(Observation{
		Weather: domain.Weather{Description: "clear sky", Temperature: ptr(25.0)},
		Travel:  domain.TravelTime{Duration: "5.00 mins"},
	}, nil)
}

func destinations(city string, names ...string) []domain.Destination {
	out := make([]domain.Destination, len(names))
	for i, n := range names {
		out[i] = domain.Destination{ID: int64(i + 1), City: city, Name: n, Type: "natural"}
	}
	return out
}

func newTestTrainer(repo *memRepo, signals SignalSource, cfg TrainerConfig, opts ...TrainerOption) *Trainer {
	logger := zerolog.Nop()
	loader := NewDestinationLoader(repo, repo, logger)
	store := NewValueTableStore(repo, logger)
	return NewTrainer(cfg, loader, store, signals, logger, opts...)
}

func newTestRecommender(repo *memRepo, signals SignalSource, seed int64) *Recommender {
	logger := zerolog.Nop()
	loader := NewDestinationLoader(repo, repo, logger)
	store := NewValueTableStore(repo, logger)
	return NewRecommender(loader, store, signals, logger, WithRecommenderSeed(seed))
}

func seededConfig(seed int64) TrainerConfig {
	cfg := DefaultTrainerConfig()
	cfg.Seed = seed
	return cfg
}

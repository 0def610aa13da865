package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smartcity/routeplanner/internal/domain"
)

// MockRepository implements domain.DataRepository in memory for tests and demo mode
type MockRepository struct {
	mu      sync.RWMutex
	nextID  int64
	dests   map[string][]domain.Destination
	tables  map[string][][]float64
	travel  map[string]domain.TravelTime
	reviews []domain.Review
}

// NewMockRepository creates an empty mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		dests:  make(map[string][]domain.Destination),
		tables: make(map[string][][]float64),
		travel: make(map[string]domain.TravelTime),
	}
}

// NewSeededMockRepository creates a mock repository holding SampleDestinations
func NewSeededMockRepository() *MockRepository {
	r := NewMockRepository()
	r.AddDestinations(SampleDestinations()...)
	return r
}

func coord(v float64) *float64 { return &v }

// SampleDestinations returns the demo catalog of Da Lat
func SampleDestinations() []domain.Destination {
	const city = "Da Lat"
	return []domain.Destination{
		{City: city, Name: "Xuan Huong Lake", Type: "natural", TicketPrice: 0, Popularity: 4.5, Latitude: coord(11.9416), Longitude: coord(108.4383)},
		{City: city, Name: "Lam Vien Square", Type: "cultural", TicketPrice: 0, Popularity: 4.2, Latitude: coord(11.9389), Longitude: coord(108.4456)},
		{City: city, Name: "Da Lat Flower Garden", Type: "natural", TicketPrice: 50000, Popularity: 4.3, Latitude: coord(11.9506), Longitude: coord(108.4497)},
		{City: city, Name: "Crazy House", Type: "cultural", TicketPrice: 80000, Popularity: 4.4, Latitude: coord(11.9352), Longitude: coord(108.4307)},
		{City: city, Name: "Linh Phuoc Pagoda", Type: "cultural", TicketPrice: 0, Popularity: 4.6, Latitude: coord(11.9447), Longitude: coord(108.4995)},
		{City: city, Name: "Langbiang Mountain", Type: "natural", TicketPrice: 50000, Popularity: 4.5, Latitude: coord(12.0466), Longitude: coord(108.4406)},
		{City: city, Name: "Datanla Waterfall", Type: "natural", TicketPrice: 50000, Popularity: 4.1, Latitude: coord(11.9017), Longitude: coord(108.4497)},
		{City: city, Name: "Bao Dai Summer Palace", Type: "cultural", TicketPrice: 30000, Popularity: 4.0, Latitude: coord(11.9305), Longitude: coord(108.4312)},
		{City: city, Name: "Da Lat Night Market", Type: "entertainment", TicketPrice: 0, Popularity: 4.3, Latitude: coord(11.9431), Longitude: coord(108.4362)},
		{City: city, Name: "Truc Lam Monastery", Type: "cultural", TicketPrice: 0, Popularity: 4.5, Latitude: coord(11.9036), Longitude: coord(108.4361)},
	}
}

// AddDestinations appends destinations, assigning ids in insertion order
func (r *MockRepository) AddDestinations(dests ...domain.Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dests {
		r.nextID++
		d.ID = r.nextID
		r.dests[d.City] = append(r.dests[d.City], d)
	}
}

// ListDestinations returns a city's destinations in insertion order
func (r *MockRepository) ListDestinations(ctx context.Context, city string) ([]domain.Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds := r.dests[city]
	if len(ds) == 0 {
		return nil, domain.ErrUnknownCity
	}
	return append([]domain.Destination(nil), ds...), nil
}

// GetDestination returns one destination of a city
func (r *MockRepository) GetDestination(ctx context.Context, city string, id int64) (domain.Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.dests[city] {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Destination{}, domain.ErrNotFound
}

// UpdateDestinationSentiment stores the review aggregates of a destination
func (r *MockRepository) UpdateDestinationSentiment(ctx context.Context, id int64, rating float64, reviewCount int, sentiment float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for city, ds := range r.dests {
		for i := range ds {
			if ds[i].ID != id {
				continue
			}
			s := sentiment
			r.dests[city][i].Rating = rating
			r.dests[city][i].ReviewCount = reviewCount
			r.dests[city][i].SentimentScore = &s
			return nil
		}
	}
	return domain.ErrNotFound
}

// GetValueTable returns a copy of the stored table
func (r *MockRepository) GetValueTable(ctx context.Context, city string) ([][]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows, ok := r.tables[city]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRows(rows), nil
}

// PutValueTable stores a copy of the table
func (r *MockRepository) PutValueTable(ctx context.Context, city string, rows [][]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[city] = copyRows(rows)
	return nil
}

func travelKey(city string, fromID, toID int64) string {
	return fmt.Sprintf("%s:%d:%d", city, fromID, toID)
}

// GetTravelTime returns a stored travel time
func (r *MockRepository) GetTravelTime(ctx context.Context, city string, fromID, toID int64) (domain.TravelTime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.travel[travelKey(city, fromID, toID)]
	if !ok {
		return domain.TravelTime{}, domain.ErrNotFound
	}
	return t, nil
}

// SaveTravelTime stores a travel time
func (r *MockRepository) SaveTravelTime(ctx context.Context, city string, fromID, toID int64, t domain.TravelTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.travel[travelKey(city, fromID, toID)] = t
	return nil
}

// SaveReview stores a review
func (r *MockRepository) SaveReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv.ID = int64(len(r.reviews) + 1)
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now()
	}
	r.reviews = append(r.reviews, rv)
	return rv, nil
}

// SummarizeReviews averages the review scores of a destination
func (r *MockRepository) SummarizeReviews(ctx context.Context, city string, destinationID int64) (domain.ReviewSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s domain.ReviewSummary
	var total float64
	for _, rv := range r.reviews {
		if rv.City == city && rv.DestinationID == destinationID {
			total += rv.SentimentScore
			s.Count++
		}
	}
	if s.Count > 0 {
		s.AverageScore = total / float64(s.Count)
	}
	return s, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

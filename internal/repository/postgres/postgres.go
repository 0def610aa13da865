package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/routeplanner/internal/domain"
)

//go:embed schema.sql
var schema string

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Connect opens a pool and verifies the connection
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables when they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}

// SeedDestinations inserts destinations that are not stored yet, matched by city and name
func (r *PostgresRepository) SeedDestinations(ctx context.Context, dests []domain.Destination) error {
	query := `
		INSERT INTO destinations (
			city, name, type, ticket_price, popularity, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (city, name) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, d := range dests {
		batch.Queue(query, d.City, d.Name, d.Type, d.TicketPrice, d.Popularity, d.Latitude, d.Longitude)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to seed destinations: %w", err)
	}
	return nil
}

const destinationColumns = `
	id, city, name, type, ticket_price, popularity, sentiment_score,
	rating, review_count, latitude, longitude
`

func scanDestination(row pgx.Row) (domain.Destination, error) {
	var d domain.Destination
	err := row.Scan(
		&d.ID, &d.City, &d.Name, &d.Type, &d.TicketPrice, &d.Popularity, &d.SentimentScore,
		&d.Rating, &d.ReviewCount, &d.Latitude, &d.Longitude,
	)
	return d, err
}

// ListDestinations returns a city's destinations ordered by id
func (r *PostgresRepository) ListDestinations(ctx context.Context, city string) ([]domain.Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE city = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, city)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query destinations: %w", err)
	}
	defer rows.Close()

	var results []domain.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan destination row: %w", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read destinations: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.ErrUnknownCity
	}

	return results, nil
}

// GetDestination returns one destination of a city
func (r *PostgresRepository) GetDestination(ctx context.Context, city string, id int64) (domain.Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE city = $1 AND id = $2`

	d, err := scanDestination(r.pool.QueryRow(ctx, query, city, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Destination{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Destination{}, fmt.Errorf("postgres: failed to get destination: %w", err)
	}
	return d, nil
}

// UpdateDestinationSentiment stores the review aggregates of a destination
func (r *PostgresRepository) UpdateDestinationSentiment(ctx context.Context, id int64, rating float64, reviewCount int, sentiment float64) error {
	query := `
		UPDATE destinations
		SET rating = $2, review_count = $3, sentiment_score = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, rating, reviewCount, sentiment)
	if err != nil {
		return fmt.Errorf("postgres: failed to update destination sentiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetValueTable loads a city's value table. A row that is not a JSON matrix
// counts as absent.
func (r *PostgresRepository) GetValueTable(ctx context.Context, city string) ([][]float64, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT q_table FROM q_tables WHERE city = $1`, city).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get value table: %w", err)
	}

	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("postgres: stored value table is not a matrix: %w", domain.ErrNotFound)
	}
	return rows, nil
}

// PutValueTable upserts a city's value table
func (r *PostgresRepository) PutValueTable(ctx context.Context, city string, rows [][]float64) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode value table: %w", err)
	}

	query := `
		INSERT INTO q_tables (city, q_table, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (city) DO UPDATE SET q_table = EXCLUDED.q_table, updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, city, raw); err != nil {
		return fmt.Errorf("postgres: failed to save value table: %w", err)
	}
	return nil
}

// GetTravelTime returns a stored travel time
func (r *PostgresRepository) GetTravelTime(ctx context.Context, city string, fromID, toID int64) (domain.TravelTime, error) {
	query := `
		SELECT duration, duration_seconds
		FROM travel_times
		WHERE city = $1 AND origin_id = $2 AND destination_id = $3
	`

	var t domain.TravelTime
	err := r.pool.QueryRow(ctx, query, city, fromID, toID).Scan(&t.Duration, &t.DurationSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TravelTime{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TravelTime{}, fmt.Errorf("postgres: failed to get travel time: %w", err)
	}
	return t, nil
}

// SaveTravelTime upserts a travel time
func (r *PostgresRepository) SaveTravelTime(ctx context.Context, city string, fromID, toID int64, t domain.TravelTime) error {
	query := `
		INSERT INTO travel_times (city, origin_id, destination_id, duration, duration_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (city, origin_id, destination_id)
		DO UPDATE SET duration = EXCLUDED.duration, duration_seconds = EXCLUDED.duration_seconds, updated_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, city, fromID, toID, t.Duration, t.DurationSeconds); err != nil {
		return fmt.Errorf("postgres: failed to save travel time: %w", err)
	}
	return nil
}

// SaveReview stores a scored review and returns it with id and timestamp
func (r *PostgresRepository) SaveReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	query := `
		INSERT INTO reviews (destination_id, city, comment, sentiment_score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query, rv.DestinationID, rv.City, rv.Comment, rv.SentimentScore, rv.CreatedAt).
		Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		return domain.Review{}, fmt.Errorf("postgres: failed to save review: %w", err)
	}
	return rv, nil
}

// SummarizeReviews averages the review scores of a destination
func (r *PostgresRepository) SummarizeReviews(ctx context.Context, city string, destinationID int64) (domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(sentiment_score), 0), COUNT(*)
		FROM reviews
		WHERE city = $1 AND destination_id = $2
	`

	var s domain.ReviewSummary
	if err := r.pool.QueryRow(ctx, query, city, destinationID).Scan(&s.AverageScore, &s.Count); err != nil {
		return domain.ReviewSummary{}, fmt.Errorf("postgres: failed to summarize reviews: %w", err)
	}
	return s, nil
}

// Lock takes a session advisory lock on the city. The returned function
// releases it and returns the connection to the pool.
func (r *PostgresRepository) Lock(ctx context.Context, city string) (func(), error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to acquire connection for lock: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, city); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres: failed to lock city %q: %w", city, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, city); err != nil {
				// a failed unlock must not return a locked session to the pool
				conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/qtable"
)

// ValueTableStore loads and saves per-city value tables, enforcing that a
// loaded table always matches the current catalog size
type ValueTableStore struct {
	repo   domain.ValueTableRepository
	logger zerolog.Logger
}

// NewValueTableStore creates a store over the given repository
func NewValueTableStore(repo domain.ValueTableRepository, logger zerolog.Logger) *ValueTableStore {
	return &ValueTableStore{repo: repo, logger: logger}
}

// Load returns the city's n×n table. An absent, undecodable or stale table
// is replaced by a zero table and reinitialized is true.
func (s *ValueTableStore) Load(ctx context.Context, city string, n int) (table *qtable.Table, reinitialized bool, err error) {
	rows, err := s.repo.GetValueTable(ctx, city)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Debug().Str("city", city).Int("size", n).Msg("no value table stored, starting from zero")
		return s.zero(city, n)
	case err != nil:
		return nil, false, domain.NewCityError(city, "load value table", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}

	t, err := qtable.FromRows(rows)
	if err != nil {
		s.logger.Warn().Err(err).Str("city", city).Msg("stored value table is corrupt, reinitializing")
		return s.zero(city, n)
	}
	if t.Size() != n {
		s.logger.Warn().Str("city", city).Int("stored", t.Size()).Int("destinations", n).Msg("stored value table is stale, reinitializing")
		return s.zero(city, n)
	}
	return t, false, nil
}

func (s *ValueTableStore) zero(city string, n int) (*qtable.Table, bool, error) {
	t, err := qtable.New(n)
	if err != nil {
		return nil, false, domain.NewCityError(city, "value table size", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}
	return t, true, nil
}

// Save persists the table for the city
func (s *ValueTableStore) Save(ctx context.Context, city string, t *qtable.Table) error {
	if err := s.repo.PutValueTable(ctx, city, t.Rows()); err != nil {
		return domain.NewCityError(city, "save value table", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}
	return nil
}

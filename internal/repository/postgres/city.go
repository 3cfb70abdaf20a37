package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carpool/internal/domain"
)

// CityRepository is a PostgreSQL implementation of repository.CityRepository.
type CityRepository struct {
	q Querier
}

// NewCityRepository creates a city repository backed by the pool.
func NewCityRepository(db *sql.DB) *CityRepository {
	return &CityRepository{q: db}
}

// NewCityRepositoryWithTx creates a city repository bound to a transaction.
func NewCityRepositoryWithTx(tx *sql.Tx) *CityRepository {
	return &CityRepository{q: tx}
}

// CheckExist fails with domain.ErrCityNotFound if any id is unknown.
func (r *CityRepository) CheckExist(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	unique := make(map[uuid.UUID]struct{}, len(ids))
	lookup := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		lookup = append(lookup, id.String())
	}

	query := `SELECT COUNT(*) FROM cities WHERE id = ANY($1::uuid[])`

	var count int
	if err := r.q.QueryRowContext(ctx, query, pq.Array(lookup)).Scan(&count); err != nil {
		return fmt.Errorf("check cities: %w", err)
	}

	if count != len(lookup) {
		return domain.ErrCityNotFound
	}
	return nil
}

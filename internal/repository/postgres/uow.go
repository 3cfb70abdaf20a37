package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// UnitOfWorkStarter opens PostgreSQL-backed units of work.
type UnitOfWorkStarter struct {
	db    *sql.DB
	clock domain.Clock
}

// NewUnitOfWorkStarter creates a starter over the shared pool.
func NewUnitOfWorkStarter(db *sql.DB, clock domain.Clock) *UnitOfWorkStarter {
	return &UnitOfWorkStarter{db: db, clock: clock}
}

// Begin checks out one connection, starts a transaction on it and
// returns the repositories bound to that transaction.
func (s *UnitOfWorkStarter) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &UnitOfWork{
		tx:     tx,
		rides:  NewRideRepositoryWithTx(tx, s.clock),
		cities: NewCityRepositoryWithTx(tx),
	}, nil
}

// UnitOfWork is the PostgreSQL implementation of repository.UnitOfWork.
// It holds exactly one transaction; Close always releases the underlying
// connection, rolling back unless Commit already succeeded.
type UnitOfWork struct {
	tx        *sql.Tx
	rides     *RideRepository
	cities    *CityRepository
	hooks     []func(ctx context.Context)
	committed bool
}

// Rides returns the ride repository bound to the live transaction.
func (u *UnitOfWork) Rides() repository.RideRepository { return u.rides }

// Cities returns the city repository bound to the live transaction.
func (u *UnitOfWork) Cities() repository.CityRepository { return u.cities }

// OnCommit registers a hook to run once after a successful commit.
func (u *UnitOfWork) OnCommit(hook func(ctx context.Context)) {
	u.hooks = append(u.hooks, hook)
}

// Commit commits the transaction and runs the registered hooks.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	u.committed = true

	for _, hook := range u.hooks {
		hook(ctx)
	}
	return nil
}

// Close rolls back unless Commit succeeded and releases the connection.
func (u *UnitOfWork) Close() error {
	if u.committed {
		return nil
	}
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Ensure the interfaces are satisfied.
var (
	_ repository.UnitOfWorkStarter = (*UnitOfWorkStarter)(nil)
	_ repository.UnitOfWork        = (*UnitOfWork)(nil)
)

package repository

import "context"

// UnitOfWork is a transaction-scoped set of repositories. A unit of work
// checks out exactly one storage connection for its lifetime; Close
// releases it unconditionally and rolls back unless Commit succeeded.
//
// Typical use:
//
//	uow, err := starter.Begin(ctx)
//	if err != nil { ... }
//	defer uow.Close()
//
//	ride, err := uow.Rides().GetActive(ctx, id)
//	...mutate, uow.Rides().Update(ctx, ride)...
//	uow.OnCommit(evictCache)
//	return uow.Commit(ctx)
type UnitOfWork interface {
	// Rides returns the ride repository bound to the live transaction.
	Rides() RideRepository

	// Cities returns the city repository bound to the live transaction.
	Cities() CityRepository

	// OnCommit registers a hook to run exactly once after a successful
	// commit. Hooks must not fail the business operation.
	OnCommit(hook func(ctx context.Context))

	// Commit commits the transaction and then runs the registered
	// hooks. Calling Commit more than once is a programming error.
	Commit(ctx context.Context) error

	// Close releases the connection, rolling the transaction back if
	// Commit was not called. Safe to defer alongside Commit.
	Close() error
}

// UnitOfWorkStarter opens units of work against the shared pool.
type UnitOfWorkStarter interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

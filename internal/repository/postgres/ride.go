package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q     Querier
	clock domain.Clock
}

// NewRideRepository creates a ride repository backed by the pool.
func NewRideRepository(db *sql.DB, clock domain.Clock) *RideRepository {
	return &RideRepository{q: db, clock: clock}
}

// NewRideRepositoryWithTx creates a ride repository bound to a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx, clock domain.Clock) *RideRepository {
	return &RideRepository{q: tx, clock: clock}
}

// Create persists a new ride with its passenger rows.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, owner_id, city_from, city_to, departure_time, description, is_cancelled, price_currency, price_value, seats_number, seats_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	snap := ride.Snapshot()

	_, err := r.q.ExecContext(ctx, query,
		snap.ID,
		snap.OwnerID,
		snap.Route.CityFrom,
		snap.Route.CityTo,
		snap.DepartureTime,
		nullString(snap.Description),
		snap.IsCancelled,
		snap.Price.Currency,
		snap.Price.Value,
		snap.SeatsNumber,
		snap.SeatsAvailable(),
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}

	// New rides have no passengers, but the protocol does not depend on it.
	for _, p := range snap.Passengers {
		if err := r.insertPassenger(ctx, snap.ID, p); err != nil {
			return err
		}
	}

	ride.ClearChangedFields()
	return nil
}

// GetActive loads the ride under an exclusive row lock, filtered to
// rides that are not cancelled and have not departed. Passengers are
// loaded eagerly: the seat-capacity checks need the full booked total.
// The second of two racing transactions blocks here until the first
// commits or rolls back.
func (r *RideRepository) GetActive(ctx context.Context, id uuid.UUID) (*domain.Ride, error) {
	query := `
		SELECT id, owner_id, city_from, city_to, departure_time, description, is_cancelled, price_currency, price_value, seats_number, created_at
		FROM rides
		WHERE id = $1 AND is_cancelled = FALSE AND departure_time > $2
		FOR UPDATE
	`

	snap, err := r.scanRide(r.q.QueryRowContext(ctx, query, id, r.clock.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrActiveRideNotFound
		}
		return nil, err
	}

	snap.Passengers, err = r.loadPassengers(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.LoadRide(snap, r.clock), nil
}

// GetByID reads the full ride state without locking, in any lifecycle
// state. ErrNotFound when no row exists.
func (r *RideRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.RideSnapshot, error) {
	query := `
		SELECT id, owner_id, city_from, city_to, departure_time, description, is_cancelled, price_currency, price_value, seats_number, created_at
		FROM rides
		WHERE id = $1
	`

	snap, err := r.scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RideSnapshot{}, repository.ErrNotFound
		}
		return domain.RideSnapshot{}, err
	}

	snap.Passengers, err = r.loadPassengers(ctx, id)
	if err != nil {
		return domain.RideSnapshot{}, err
	}

	return snap, nil
}

// Update folds the ride's change set into a minimal write: idempotent
// passenger inserts, deletion of removed passengers, and a column-level
// update of the changed scalar fields. seats_available is recomputed
// only when a relevant delta occurred. The tracker is cleared on success.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	snap := ride.Snapshot()

	if ride.HasChanged(domain.FieldPassengersAdded) {
		for _, p := range snap.Passengers {
			if err := r.insertPassenger(ctx, snap.ID, p); err != nil {
				return err
			}
		}
	}

	if ride.HasChanged(domain.FieldPassengersRemoved) {
		keep := make([]string, len(snap.Passengers))
		for i, p := range snap.Passengers {
			keep[i] = p.ID.String()
		}

		query := `DELETE FROM passengers WHERE ride_id = $1 AND NOT (id = ANY($2::uuid[]))`
		if _, err := r.q.ExecContext(ctx, query, snap.ID, pq.Array(keep)); err != nil {
			return fmt.Errorf("delete passengers: %w", err)
		}
	}

	cols, args := changedColumns(ride, snap)
	if len(cols) > 0 {
		result, err := r.q.ExecContext(ctx, buildRideUpdate(cols), append([]any{snap.ID}, args...)...)
		if err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
	}

	ride.ClearChangedFields()
	return nil
}

// ListByRoute returns bookable rides for the route on the given UTC day.
func (r *RideRepository) ListByRoute(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
	query := `
		SELECT id, departure_time, price_currency, price_value, seats_available, seats_number
		FROM rides
		WHERE city_from = $1 AND city_to = $2
		  AND departure_time >= $3 AND departure_time < $4
		  AND seats_available >= $5
		  AND is_cancelled = FALSE
		ORDER BY departure_time
	`

	from := params.DepartureDate.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	rows, err := r.q.QueryContext(ctx, query, params.CityFrom, params.CityTo, from, to, params.MinSeatsAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []repository.RideListing
	for rows.Next() {
		var l repository.RideListing
		if err := rows.Scan(
			&l.ID,
			&l.DepartureTime,
			&l.Price.Currency,
			&l.Price.Value,
			&l.SeatsAvailable,
			&l.SeatsNumber,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// changedColumns maps the change tracker onto rides columns. Price
// expands to two columns; seats_available is derived and written
// whenever passengers or the capacity changed.
func changedColumns(ride *domain.Ride, snap domain.RideSnapshot) ([]string, []any) {
	var cols []string
	var args []any

	add := func(col string, val any) {
		cols = append(cols, col)
		args = append(args, val)
	}

	if ride.HasChanged(domain.FieldDepartureTime) {
		add("departure_time", snap.DepartureTime)
	}
	if ride.HasChanged(domain.FieldDescription) {
		add("description", nullString(snap.Description))
	}
	if ride.HasChanged(domain.FieldPrice) {
		add("price_currency", string(snap.Price.Currency))
		add("price_value", snap.Price.Value)
	}
	if ride.HasChanged(domain.FieldIsCancelled) {
		add("is_cancelled", snap.IsCancelled)
	}
	if ride.HasChanged(domain.FieldSeatsNumber) {
		add("seats_number", snap.SeatsNumber)
	}
	if ride.HasChanged(domain.FieldSeatsNumber) ||
		ride.HasChanged(domain.FieldPassengersAdded) ||
		ride.HasChanged(domain.FieldPassengersRemoved) {
		add("seats_available", snap.SeatsAvailable())
	}

	return cols, args
}

// buildRideUpdate renders "UPDATE rides SET ... WHERE id = $1" with the
// column placeholders starting at $2.
func buildRideUpdate(cols []string) string {
	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}
	return fmt.Sprintf("UPDATE rides SET %s WHERE id = $1", strings.Join(assignments, ", "))
}

// insertPassenger inserts a passenger row, ignoring duplicates so that
// re-persisting the full passenger list stays idempotent.
func (r *RideRepository) insertPassenger(ctx context.Context, rideID uuid.UUID, p domain.Passenger) error {
	query := `
		INSERT INTO passengers (id, ride_id, seats_booked)
		VALUES ($1, $2, $3)
		ON CONFLICT (id, ride_id) DO NOTHING
	`

	if _, err := r.q.ExecContext(ctx, query, p.ID, rideID, p.SeatsBooked); err != nil {
		return fmt.Errorf("insert passenger: %w", err)
	}
	return nil
}

func (r *RideRepository) loadPassengers(ctx context.Context, rideID uuid.UUID) ([]domain.Passenger, error) {
	query := `SELECT id, seats_booked FROM passengers WHERE ride_id = $1 ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passengers []domain.Passenger
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.SeatsBooked); err != nil {
			return nil, err
		}
		passengers = append(passengers, p)
	}
	return passengers, rows.Err()
}

// scanRide scans a rides row (without passengers) into a snapshot.
func (r *RideRepository) scanRide(row *sql.Row) (domain.RideSnapshot, error) {
	var snap domain.RideSnapshot
	var description sql.NullString

	err := row.Scan(
		&snap.ID,
		&snap.OwnerID,
		&snap.Route.CityFrom,
		&snap.Route.CityTo,
		&snap.DepartureTime,
		&description,
		&snap.IsCancelled,
		&snap.Price.Currency,
		&snap.Price.Value,
		&snap.SeatsNumber,
		&snap.CreatedAt,
	)
	if err != nil {
		return domain.RideSnapshot{}, err
	}

	if description.Valid {
		snap.Description = description.String
	}
	return snap, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

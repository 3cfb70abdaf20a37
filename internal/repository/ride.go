package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
)

// FilterParams narrows a listing query to one route and day.
type FilterParams struct {
	CityFrom          uuid.UUID
	CityTo            uuid.UUID
	DepartureDate     time.Time // the UTC day rides depart on
	MinSeatsAvailable int
}

// RideListing is the brief read projection returned by listing queries.
type RideListing struct {
	ID             uuid.UUID    `json:"id"`
	DepartureTime  time.Time    `json:"departure_time"`
	Price          domain.Price `json:"price"`
	SeatsAvailable int          `json:"seats_available"`
	SeatsNumber    int          `json:"seats_number"`
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride with its (usually empty) passenger rows.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetActive loads the ride with an exclusive row lock, eagerly
	// fetching passengers. Only non-cancelled rides departing in the
	// future qualify; anything else fails with
	// domain.ErrActiveRideNotFound. Concurrent GetActive calls for the
	// same id serialize on the lock until the owning transaction ends.
	GetActive(ctx context.Context, id uuid.UUID) (*domain.Ride, error)

	// Update persists only the fields recorded by the ride's change
	// tracker and clears the tracker on success.
	Update(ctx context.Context, ride *domain.Ride) error

	// GetByID reads the full state of a ride without locking,
	// regardless of its lifecycle state. Used by the read projections.
	GetByID(ctx context.Context, id uuid.UUID) (domain.RideSnapshot, error)

	// ListByRoute returns brief projections of bookable rides matching
	// the filter, ordered by departure time.
	ListByRoute(ctx context.Context, params FilterParams) ([]RideListing, error)
}

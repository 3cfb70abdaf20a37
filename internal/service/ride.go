package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// RideService implements the booking use cases. Every mutation runs in
// its own unit of work; the repository's row lock serializes concurrent
// mutations of the same ride, and cache eviction is registered as a
// post-commit hook so it fires exactly once per committed mutation.
type RideService struct {
	uow      repository.UnitOfWorkStarter
	rideRepo repository.RideRepository
	cache    redis.CacheStoreInterface
	clock    domain.Clock
	log      zerolog.Logger
}

// NewRideService creates a new RideService. rideRepo must be
// pool-backed: it serves the unlocked read paths only.
func NewRideService(
	uow repository.UnitOfWorkStarter,
	rideRepo repository.RideRepository,
	cache redis.CacheStoreInterface,
	clock domain.Clock,
	log zerolog.Logger,
) *RideService {
	return &RideService{
		uow:      uow,
		rideRepo: rideRepo,
		cache:    cache,
		clock:    clock,
		log:      log,
	}
}

// CreateRideRequest contains the parameters for publishing a ride.
type CreateRideRequest struct {
	OwnerID       uuid.UUID
	CityFrom      uuid.UUID
	CityTo        uuid.UUID
	DepartureTime time.Time
	Description   string
	PriceCurrency domain.Currency
	PriceValue    int64
	SeatsNumber   int
}

// Create validates and persists a new ride after checking that both
// route cities exist.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	route, err := domain.NewRoute(req.CityFrom, req.CityTo)
	if err != nil {
		return nil, err
	}
	price, err := domain.NewPrice(req.PriceCurrency, req.PriceValue)
	if err != nil {
		return nil, err
	}

	ride, err := domain.NewRide(domain.CreateRideParams{
		OwnerID:       req.OwnerID,
		Route:         route,
		DepartureTime: req.DepartureTime,
		Description:   req.Description,
		Price:         price,
		SeatsNumber:   req.SeatsNumber,
	}, s.clock)
	if err != nil {
		return nil, err
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	if err := uow.Cities().CheckExist(ctx, route.CityFrom, route.CityTo); err != nil {
		return nil, err
	}
	if err := uow.Rides().Create(ctx, ride); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	return ride, nil
}

// UpdateRideRequest contains the owner's field changes. Nil fields are
// left untouched.
type UpdateRideRequest struct {
	RideID uuid.UUID
	UserID uuid.UUID

	DepartureTime *time.Time
	Description   *string
	PriceCurrency *domain.Currency
	PriceValue    *int64
	SeatsNumber   *int
}

func (r UpdateRideRequest) empty() bool {
	return r.DepartureTime == nil && r.Description == nil &&
		r.PriceCurrency == nil && r.PriceValue == nil && r.SeatsNumber == nil
}

// Update applies the owner's changes to an active ride.
func (s *RideService) Update(ctx context.Context, req UpdateRideRequest) (*domain.Ride, error) {
	if req.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	ride, err := uow.Rides().GetActive(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.OwnerID() != req.UserID {
		return nil, ErrNotRideOwner
	}

	if req.DepartureTime != nil {
		if err := ride.SetDepartureTime(*req.DepartureTime); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := ride.SetDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	// Price changes only as a currency/value pair.
	if req.PriceCurrency != nil || req.PriceValue != nil {
		if req.PriceCurrency == nil || req.PriceValue == nil {
			return nil, domain.ErrInvalidPrice
		}
		price, err := domain.NewPrice(*req.PriceCurrency, *req.PriceValue)
		if err != nil {
			return nil, err
		}
		if err := ride.SetPrice(price); err != nil {
			return nil, err
		}
	}
	if req.SeatsNumber != nil {
		if err := ride.SetSeatsNumber(*req.SeatsNumber); err != nil {
			return nil, err
		}
	}

	if err := uow.Rides().Update(ctx, ride); err != nil {
		return nil, err
	}

	s.evictOnCommit(uow, req.RideID)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	return ride, nil
}

// Cancel soft-deletes an active ride on behalf of its owner.
func (s *RideService) Cancel(ctx context.Context, rideID, userID uuid.UUID) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	ride, err := uow.Rides().GetActive(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.OwnerID() != userID {
		return ErrNotRideOwner
	}

	if err := ride.Cancel(); err != nil {
		return err
	}
	if err := uow.Rides().Update(ctx, ride); err != nil {
		return err
	}

	s.evictOnCommit(uow, rideID)
	return uow.Commit(ctx)
}

// BookRideRequest contains the parameters for booking seats.
type BookRideRequest struct {
	RideID      uuid.UUID
	PassengerID uuid.UUID
	Seats       int
}

// Book adds the user as a passenger of an active ride. Two concurrent
// bookings of the same ride serialize on the row lock; the loser
// re-reads the committed state and fails if the ride filled up.
func (s *RideService) Book(ctx context.Context, req BookRideRequest) (*domain.Ride, error) {
	passenger, err := domain.NewPassenger(req.PassengerID, req.Seats)
	if err != nil {
		return nil, err
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	ride, err := uow.Rides().GetActive(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if err := ride.AddPassenger(passenger); err != nil {
		return nil, err
	}
	if err := uow.Rides().Update(ctx, ride); err != nil {
		return nil, err
	}

	s.evictOnCommit(uow, req.RideID)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	return ride, nil
}

// Leave removes the user's booking from an active ride.
func (s *RideService) Leave(ctx context.Context, rideID, passengerID uuid.UUID) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	ride, err := uow.Rides().GetActive(ctx, rideID)
	if err != nil {
		return err
	}

	if err := ride.RemovePassenger(passengerID); err != nil {
		return err
	}
	if err := uow.Rides().Update(ctx, ride); err != nil {
		return err
	}

	s.evictOnCommit(uow, rideID)
	return uow.Commit(ctx)
}

// Get returns the full ride projection, read through the cache. This
// path takes no lock; it may trail a concurrent mutation by at most the
// eviction window.
func (s *RideService) Get(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error) {
	cached, err := s.cache.GetRide(ctx, rideID)
	if err != nil {
		// A broken cache must not take down reads.
		s.log.Warn().Err(err).Str("ride_id", rideID.String()).Msg("ride cache read failed")
	}
	if cached != nil {
		return *cached, nil
	}

	snap, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return domain.RideSnapshot{}, err
	}

	if err := s.cache.SetRide(ctx, snap); err != nil {
		s.log.Warn().Err(err).Str("ride_id", rideID.String()).Msg("ride cache write failed")
	}
	return snap, nil
}

// Filter returns brief listings of bookable rides for a route and day.
func (s *RideService) Filter(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
	return s.rideRepo.ListByRoute(ctx, params)
}

// evictOnCommit registers post-commit eviction of the ride's cached
// projections. Failures are logged, not propagated: the TTL bounds how
// long a missed eviction can serve stale data.
func (s *RideService) evictOnCommit(uow repository.UnitOfWork, rideID uuid.UUID) {
	uow.OnCommit(func(ctx context.Context) {
		if err := s.cache.InvalidateRide(ctx, rideID); err != nil {
			s.log.Error().Err(err).Str("ride_id", rideID.String()).Msg("ride cache eviction failed")
		}
	})
}

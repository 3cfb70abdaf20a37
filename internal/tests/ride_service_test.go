package tests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

func repositoryFilter(f *fixture, day time.Time, minSeats int) repository.FilterParams {
	return repository.FilterParams{
		CityFrom:          f.cityFrom,
		CityTo:            f.cityTo,
		DepartureDate:     day,
		MinSeatsAvailable: minSeats,
	}
}

var testBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock   *FixedClock
	store   *MemoryStore
	starter *MockUnitOfWorkStarter
	cache   *MockCacheStore
	svc     *service.RideService

	cityFrom uuid.UUID
	cityTo   uuid.UUID
}

func newFixture() *fixture {
	clock := NewFixedClock(testBase)
	store := NewMemoryStore(clock)
	starter := NewMockUnitOfWorkStarter(store)
	cache := NewMockCacheStore()

	f := &fixture{
		clock:    clock,
		store:    store,
		starter:  starter,
		cache:    cache,
		svc:      service.NewRideService(starter, store, cache, clock, zerolog.Nop()),
		cityFrom: uuid.New(),
		cityTo:   uuid.New(),
	}
	store.AddCity(f.cityFrom)
	store.AddCity(f.cityTo)
	return f
}

func (f *fixture) createRequest(owner uuid.UUID) service.CreateRideRequest {
	return service.CreateRideRequest{
		OwnerID:       owner,
		CityFrom:      f.cityFrom,
		CityTo:        f.cityTo,
		DepartureTime: testBase.Add(24 * time.Hour),
		PriceCurrency: domain.CurrencyEURCent,
		PriceValue:    2500,
		SeatsNumber:   3,
	}
}

func (f *fixture) seedRide(t *testing.T, owner uuid.UUID, seats int) *domain.Ride {
	t.Helper()
	req := f.createRequest(owner)
	req.SeatsNumber = seats
	ride, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return ride
}

func TestRideCreate_PersistsRide(t *testing.T) {
	f := newFixture()
	owner := uuid.New()

	ride, err := f.svc.Create(context.Background(), f.createRequest(owner))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap, ok := f.store.GetSnapshot(ride.ID())
	if !ok {
		t.Fatal("ride was not persisted")
	}
	if snap.OwnerID != owner {
		t.Errorf("expected owner %v, got %v", owner, snap.OwnerID)
	}
	if snap.SeatsAvailable() != 3 {
		t.Errorf("expected 3 seats available, got %d", snap.SeatsAvailable())
	}
	if f.starter.CommitCallCount != 1 {
		t.Errorf("expected 1 commit, got %d", f.starter.CommitCallCount)
	}
}

func TestRideCreate_UnknownCity(t *testing.T) {
	f := newFixture()
	req := f.createRequest(uuid.New())
	req.CityTo = uuid.New() // Not registered.

	_, err := f.svc.Create(context.Background(), req)
	if err != domain.ErrCityNotFound {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if f.store.CountRides() != 0 {
		t.Error("nothing must be persisted when the route check fails")
	}
	if f.starter.CommitCallCount != 0 {
		t.Errorf("expected no commits, got %d", f.starter.CommitCallCount)
	}
}

func TestRideUpdate_OwnerChangesPrice(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	ride := f.seedRide(t, owner, 3)

	currency := domain.CurrencyEURCent
	value := int64(4200)
	updated, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID:        ride.ID(),
		UserID:        owner,
		PriceCurrency: &currency,
		PriceValue:    &value,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Price().Value != 4200 {
		t.Errorf("expected price 4200, got %d", updated.Price().Value)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if snap.Price.Value != 4200 {
		t.Errorf("expected persisted price 4200, got %d", snap.Price.Value)
	}
}

func TestRideUpdate_NotOwner(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	seats := 4
	_, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID:      ride.ID(),
		UserID:      uuid.New(),
		SeatsNumber: &seats,
	})
	if err != service.ErrNotRideOwner {
		t.Fatalf("expected ErrNotRideOwner, got %v", err)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if snap.SeatsNumber != 3 {
		t.Errorf("expected seats to stay 3, got %d", snap.SeatsNumber)
	}
}

func TestRideUpdate_NoFields(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	_, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID: ride.ID(),
		UserID: ride.OwnerID(),
	})
	if err != service.ErrNoFieldsToUpdate {
		t.Fatalf("expected ErrNoFieldsToUpdate, got %v", err)
	}
}

func TestRideUpdate_CurrencyWithoutValue(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	currency := domain.CurrencyPLNGrosz
	_, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID:        ride.ID(),
		UserID:        ride.OwnerID(),
		PriceCurrency: &currency,
	})
	if err != domain.ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestRideUpdate_ValueWithoutCurrency(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	// A lone price_value is half a price, not an empty request.
	value := int64(9999)
	_, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID:     ride.ID(),
		UserID:     ride.OwnerID(),
		PriceValue: &value,
	})
	if err != domain.ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestRideUpdate_ValueWithoutCurrencyAlongsideOtherField(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	// The half pair must reject the whole request, never be dropped.
	value := int64(9999)
	seats := 4
	_, err := f.svc.Update(context.Background(), service.UpdateRideRequest{
		RideID:      ride.ID(),
		UserID:      ride.OwnerID(),
		PriceValue:  &value,
		SeatsNumber: &seats,
	})
	if err != domain.ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if snap.Price.Value != 2500 {
		t.Errorf("expected price to stay 2500, got %d", snap.Price.Value)
	}
	if snap.SeatsNumber != 3 {
		t.Errorf("expected seats to stay 3, got %d", snap.SeatsNumber)
	}
}

func TestRideCancel_Owner(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	ride := f.seedRide(t, owner, 3)

	if err := f.svc.Cancel(context.Background(), ride.ID(), owner); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if !snap.IsCancelled {
		t.Error("expected ride to be cancelled")
	}

	// A cancelled ride is gone for booking purposes.
	_, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: uuid.New(),
		Seats:       1,
	})
	if err != domain.ErrActiveRideNotFound {
		t.Errorf("expected ErrActiveRideNotFound, got %v", err)
	}
}

func TestRideCancel_NotOwner(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	err := f.svc.Cancel(context.Background(), ride.ID(), uuid.New())
	if err != service.ErrNotRideOwner {
		t.Fatalf("expected ErrNotRideOwner, got %v", err)
	}
}

func TestRideBook_AddsPassenger(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)
	passenger := uuid.New()

	booked, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: passenger,
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booked.SeatsAvailable() != 1 {
		t.Errorf("expected 1 seat left, got %d", booked.SeatsAvailable())
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if len(snap.Passengers) != 1 || snap.Passengers[0].ID != passenger {
		t.Errorf("expected the passenger to be persisted, got %+v", snap.Passengers)
	}
}

func TestRideBook_OwnRide(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	ride := f.seedRide(t, owner, 3)

	_, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: owner,
		Seats:       1,
	})
	if err != domain.ErrOwnerIsPassenger {
		t.Fatalf("expected ErrOwnerIsPassenger, got %v", err)
	}
}

func TestRideBook_RejectedBookingRollsBack(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 2)

	_, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: uuid.New(),
		Seats:       3,
	})
	if err != domain.ErrRideIsFull {
		t.Fatalf("expected ErrRideIsFull, got %v", err)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if len(snap.Passengers) != 0 {
		t.Errorf("expected no persisted passengers, got %d", len(snap.Passengers))
	}
	if f.cache.InvalidateCallCount != 0 {
		t.Errorf("a rolled back booking must not evict the cache, got %d evictions", f.cache.InvalidateCallCount)
	}
}

func TestRideLeave_RemovesPassenger(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)
	passenger := uuid.New()

	if _, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: passenger,
		Seats:       2,
	}); err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := f.svc.Leave(context.Background(), ride.ID(), passenger); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	snap, _ := f.store.GetSnapshot(ride.ID())
	if len(snap.Passengers) != 0 {
		t.Errorf("expected no passengers, got %d", len(snap.Passengers))
	}
	if snap.SeatsAvailable() != 3 {
		t.Errorf("expected all seats back, got %d", snap.SeatsAvailable())
	}
}

func TestRideLeave_NotAPassenger(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	err := f.svc.Leave(context.Background(), ride.ID(), uuid.New())
	if err != domain.ErrNotAPassenger {
		t.Fatalf("expected ErrNotAPassenger, got %v", err)
	}
}

func TestRideFilter_MatchesRouteAndDay(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 3)

	// Same route, next day: must not match.
	otherDay := f.createRequest(uuid.New())
	otherDay.DepartureTime = testBase.Add(49 * time.Hour)
	if _, err := f.svc.Create(context.Background(), otherDay); err != nil {
		t.Fatalf("Create: %v", err)
	}

	listings, err := f.svc.Filter(context.Background(), repositoryFilter(f, testBase.Add(24*time.Hour), 1))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != ride.ID() {
		t.Fatalf("expected exactly the seeded ride, got %+v", listings)
	}
}

func TestRideFilter_MinSeats(t *testing.T) {
	f := newFixture()
	ride := f.seedRide(t, uuid.New(), 2)

	if _, err := f.svc.Book(context.Background(), service.BookRideRequest{
		RideID:      ride.ID(),
		PassengerID: uuid.New(),
		Seats:       1,
	}); err != nil {
		t.Fatalf("Book: %v", err)
	}

	listings, err := f.svc.Filter(context.Background(), repositoryFilter(f, testBase.Add(24*time.Hour), 2))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("expected no rides with 2 free seats, got %+v", listings)
	}
}

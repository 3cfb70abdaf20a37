package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency identifies the minor-unit currency a price is expressed in.
type Currency string

const (
	CurrencyDKKOre    Currency = "DKK_ore"
	CurrencyEURCent   Currency = "EUR_cent"
	CurrencyGBPPence  Currency = "GBP_pence"
	CurrencyPLNGrosz  Currency = "PLN_grosz"
	CurrencyRUBKopeck Currency = "RUB_kopeck"
)

// Platform-wide booking limits.
const (
	// MaxVehicleSeats bounds seats_number; no supported vehicle has more.
	MaxVehicleSeats = 8

	// MinPriceValue is the price floor in minor units, same for every
	// currency. A real mapping would depend on the acquirer.
	MinPriceValue = 100

	// DepartureLeadTime is how far in the future a departure must be,
	// both at creation and at any later change.
	DepartureLeadTime = time.Hour
)

// ValidCurrency reports whether c is a supported currency.
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyDKKOre, CurrencyEURCent, CurrencyGBPPence, CurrencyPLNGrosz, CurrencyRUBKopeck:
		return true
	default:
		return false
	}
}

// Price is a ride price in integer minor units (cents, pence, etc.).
type Price struct {
	Currency Currency `json:"currency"`
	Value    int64    `json:"value"`
}

// NewPrice validates and builds a Price.
func NewPrice(currency Currency, value int64) (Price, error) {
	p := Price{Currency: currency, Value: value}
	if err := p.validate(); err != nil {
		return Price{}, err
	}
	return p, nil
}

func (p Price) validate() error {
	if !ValidCurrency(p.Currency) {
		return ErrInvalidCurrency
	}
	if p.Value < MinPriceValue {
		return ErrInvalidPrice
	}
	return nil
}

// Route holds the departure and destination city ids of a ride.
type Route struct {
	CityFrom uuid.UUID `json:"city_from"`
	CityTo   uuid.UUID `json:"city_to"`
}

// NewRoute validates and builds a Route.
func NewRoute(cityFrom, cityTo uuid.UUID) (Route, error) {
	r := Route{CityFrom: cityFrom, CityTo: cityTo}
	if err := r.validate(); err != nil {
		return Route{}, err
	}
	return r, nil
}

func (r Route) validate() error {
	if r.CityFrom == r.CityTo {
		return ErrInvalidRoute
	}
	return nil
}

// Passenger is a booking entry held by a Ride.
type Passenger struct {
	ID          uuid.UUID `json:"id"`
	SeatsBooked int       `json:"seats_booked"`
}

// NewPassenger validates and builds a Passenger.
func NewPassenger(id uuid.UUID, seatsBooked int) (Passenger, error) {
	if seatsBooked < 1 {
		return Passenger{}, ErrInvalidSeatsBooked
	}
	return Passenger{ID: id, SeatsBooked: seatsBooked}, nil
}

// Ride is the booking aggregate root. All state is private and changes
// only through methods that re-validate the invariants; the embedded
// Entity records which fields changed for the repository's diff write.
//
// A Ride is owned by the transaction that loaded it and must never be
// shared between goroutines.
type Ride struct {
	Entity

	id            uuid.UUID
	ownerID       uuid.UUID
	route         Route
	departureTime time.Time
	description   string
	price         Price
	seatsNumber   int
	isCancelled   bool
	passengers    []Passenger
	createdAt     time.Time

	clock Clock
}

// CreateRideParams are the inputs for NewRide.
type CreateRideParams struct {
	OwnerID       uuid.UUID
	Route         Route
	DepartureTime time.Time
	Description   string
	Price         Price
	SeatsNumber   int
}

// NewRide validates all creation invariants and returns a fresh ride
// with a new id, zero passengers and is_cancelled=false.
func NewRide(params CreateRideParams, clock Clock) (*Ride, error) {
	if err := params.Route.validate(); err != nil {
		return nil, err
	}
	if err := params.Price.validate(); err != nil {
		return nil, err
	}
	if params.SeatsNumber < 1 || params.SeatsNumber > MaxVehicleSeats {
		return nil, ErrInvalidSeats
	}
	now := clock.Now()
	if params.DepartureTime.Before(now.Add(DepartureLeadTime)) {
		return nil, ErrInvalidDepartureTime
	}

	return &Ride{
		id:            uuid.New(),
		ownerID:       params.OwnerID,
		route:         params.Route,
		departureTime: params.DepartureTime,
		description:   params.Description,
		price:         params.Price,
		seatsNumber:   params.SeatsNumber,
		createdAt:     now,
		clock:         clock,
	}, nil
}

// RideSnapshot is the full persisted state of a ride. It is used to
// rehydrate aggregates from storage and as the cacheable projection.
type RideSnapshot struct {
	ID            uuid.UUID   `json:"id"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	Route         Route       `json:"route"`
	DepartureTime time.Time   `json:"departure_time"`
	Description   string      `json:"description,omitempty"`
	Price         Price       `json:"price"`
	SeatsNumber   int         `json:"seats_number"`
	IsCancelled   bool        `json:"is_cancelled"`
	Passengers    []Passenger `json:"passengers"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SeatsAvailable mirrors Ride.SeatsAvailable for the read projection.
func (s RideSnapshot) SeatsAvailable() int {
	available := s.SeatsNumber
	for _, p := range s.Passengers {
		available -= p.SeatsBooked
	}
	return available
}

// LoadRide rehydrates a ride from a stored snapshot. No validation runs:
// the snapshot is trusted to have been produced by a valid aggregate.
func LoadRide(s RideSnapshot, clock Clock) *Ride {
	passengers := make([]Passenger, len(s.Passengers))
	copy(passengers, s.Passengers)

	return &Ride{
		id:            s.ID,
		ownerID:       s.OwnerID,
		route:         s.Route,
		departureTime: s.DepartureTime,
		description:   s.Description,
		price:         s.Price,
		seatsNumber:   s.SeatsNumber,
		isCancelled:   s.IsCancelled,
		passengers:    passengers,
		createdAt:     s.CreatedAt,
		clock:         clock,
	}
}

// Snapshot returns a copy of the ride's full state.
func (r *Ride) Snapshot() RideSnapshot {
	passengers := make([]Passenger, len(r.passengers))
	copy(passengers, r.passengers)

	return RideSnapshot{
		ID:            r.id,
		OwnerID:       r.ownerID,
		Route:         r.route,
		DepartureTime: r.departureTime,
		Description:   r.description,
		Price:         r.price,
		SeatsNumber:   r.seatsNumber,
		IsCancelled:   r.isCancelled,
		Passengers:    passengers,
		CreatedAt:     r.createdAt,
	}
}

// ID returns the ride id.
func (r *Ride) ID() uuid.UUID { return r.id }

// OwnerID returns the id of the user who published the ride.
func (r *Ride) OwnerID() uuid.UUID { return r.ownerID }

// Route returns the departure/destination city pair.
func (r *Ride) Route() Route { return r.route }

// DepartureTime returns the departure time.
func (r *Ride) DepartureTime() time.Time { return r.departureTime }

// Description returns the optional free-text description ("" if unset).
func (r *Ride) Description() string { return r.description }

// Price returns the per-seat price.
func (r *Ride) Price() Price { return r.price }

// SeatsNumber returns the seat capacity.
func (r *Ride) SeatsNumber() int { return r.seatsNumber }

// IsCancelled reports whether the ride was cancelled.
func (r *Ride) IsCancelled() bool { return r.isCancelled }

// CreatedAt returns the creation timestamp. It never changes.
func (r *Ride) CreatedAt() time.Time { return r.createdAt }

// Passengers returns a copy of the passenger list.
func (r *Ride) Passengers() []Passenger {
	passengers := make([]Passenger, len(r.passengers))
	copy(passengers, r.passengers)
	return passengers
}

// SeatsBooked returns the total number of seats booked by passengers.
func (r *Ride) SeatsBooked() int {
	booked := 0
	for _, p := range r.passengers {
		booked += p.SeatsBooked
	}
	return booked
}

// SeatsAvailable returns how many seats can still be booked.
func (r *Ride) SeatsAvailable() int {
	return r.seatsNumber - r.SeatsBooked()
}

// SetDepartureTime changes the departure time. Fails once there are
// passengers, or when the new time is within the lead interval.
func (r *Ride) SetDepartureTime(t time.Time) error {
	if len(r.passengers) > 0 {
		return ErrMutationDisallowed
	}
	if t.Before(r.clock.Now().Add(DepartureLeadTime)) {
		return ErrInvalidDepartureTime
	}
	r.departureTime = t
	r.markChanged(FieldDepartureTime)
	return nil
}

// SetDescription changes the description. Fails once there are passengers.
func (r *Ride) SetDescription(description string) error {
	if len(r.passengers) > 0 {
		return ErrMutationDisallowed
	}
	r.description = description
	r.markChanged(FieldDescription)
	return nil
}

// SetPrice changes the price. Fails once there are passengers, or when
// the new price is below the currency floor.
func (r *Ride) SetPrice(price Price) error {
	if len(r.passengers) > 0 {
		return ErrMutationDisallowed
	}
	if err := price.validate(); err != nil {
		return err
	}
	r.price = price
	r.markChanged(FieldPrice)
	return nil
}

// SetSeatsNumber changes the seat capacity. The below-booked check runs
// before the passenger check so that both failure modes stay observable.
func (r *Ride) SetSeatsNumber(seats int) error {
	if seats < 1 || seats > MaxVehicleSeats {
		return ErrInvalidSeats
	}
	if seats < r.SeatsBooked() {
		return ErrSeatsBelowBooked
	}
	if len(r.passengers) > 0 {
		return ErrMutationDisallowed
	}
	r.seatsNumber = seats
	r.markChanged(FieldSeatsNumber)
	return nil
}

// AddPassenger books seats for a user. A user books a given ride at most
// once, and the owner cannot book their own ride.
func (r *Ride) AddPassenger(passenger Passenger) error {
	if passenger.SeatsBooked < 1 {
		return ErrInvalidSeatsBooked
	}
	if passenger.ID == r.ownerID {
		return ErrOwnerIsPassenger
	}
	if passenger.SeatsBooked > r.SeatsAvailable() {
		return ErrRideIsFull
	}
	for _, p := range r.passengers {
		if p.ID == passenger.ID {
			return ErrDuplicatePassenger
		}
	}

	r.passengers = append(r.passengers, passenger)
	r.markChanged(FieldPassengersAdded)
	return nil
}

// RemovePassenger removes the booking of the given user.
func (r *Ride) RemovePassenger(id uuid.UUID) error {
	for i, p := range r.passengers {
		if p.ID == id {
			r.passengers = append(r.passengers[:i], r.passengers[i+1:]...)
			r.markChanged(FieldPassengersRemoved)
			return nil
		}
	}
	return ErrNotAPassenger
}

// Cancel soft-deletes the ride. A ride with passengers cannot be
// cancelled once departure is within the lead interval.
func (r *Ride) Cancel() error {
	if len(r.passengers) > 0 && r.departureTime.Before(r.clock.Now().Add(DepartureLeadTime)) {
		return ErrCannotCancel
	}
	r.isCancelled = true
	r.markChanged(FieldIsCancelled)
	return nil
}

package domain

// Error is a business error with a stable machine-readable code.
// Clients branch on Code; Message is for humans only.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Sentinel business errors. Each is a distinct pointer, so errors.Is
// works without an Is method. Codes are part of the API contract and
// must never be renumbered.
var (
	// Validation errors.
	ErrInvalidPrice         = &Error{Code: 1, Message: "price must be at least 100 minor units"}
	ErrInvalidRoute         = &Error{Code: 2, Message: "departure and destination cities must be different"}
	ErrInvalidSeats         = &Error{Code: 3, Message: "invalid seats number"}
	ErrInvalidDepartureTime = &Error{Code: 11, Message: "departure time must be at least an hour later than the current time"}
	ErrInvalidSeatsBooked   = &Error{Code: 12, Message: "seats booked must be at least 1"}
	ErrInvalidCurrency      = &Error{Code: 13, Message: "unknown currency"}

	// Conflict / state errors.
	ErrMutationDisallowed = &Error{Code: 4, Message: "departure time, description, price and seats number cannot change once there are passengers"}
	ErrSeatsBelowBooked   = &Error{Code: 5, Message: "seats number must be greater or equal to the booked total"}
	ErrCannotCancel       = &Error{Code: 6, Message: "the ride is about to start, so it cannot be cancelled"}
	ErrDuplicatePassenger = &Error{Code: 8, Message: "user is already a passenger of this ride"}
	ErrNotAPassenger      = &Error{Code: 9, Message: "user is not a passenger of this ride"}
	ErrRideIsFull         = &Error{Code: 10, Message: "the ride is full"}
	ErrOwnerIsPassenger   = &Error{Code: 14, Message: "the owner cannot book their own ride"}

	// Not-found errors. A single error deliberately covers "does not
	// exist", "cancelled" and "already departed"; callers cannot
	// distinguish them.
	ErrActiveRideNotFound = &Error{Code: 7, Message: "the ride does not exist or has already taken place"}
	ErrCityNotFound       = &Error{Code: 15, Message: "at least one of the specified cities was not found"}
)

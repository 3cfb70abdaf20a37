package service

import "errors"

var (
	// ErrNotRideOwner is returned when a user tries an owner-only action
	// on somebody else's ride.
	ErrNotRideOwner = errors.New("only the ride owner can perform this action")

	// ErrNoFieldsToUpdate is returned when an update request carries no
	// changes.
	ErrNoFieldsToUpdate = errors.New("at least one field is required")
)

package repository

import "errors"

var (
	// ErrNotFound is returned by plain reads when no row exists. The
	// locked active-ride path uses domain.ErrActiveRideNotFound instead,
	// which also covers cancelled and departed rides.
	ErrNotFound = errors.New("entity not found")
)

package repository

import (
	"context"

	"github.com/google/uuid"
)

// CityRepository checks city existence. City domain logic lives in
// another service; this is the only contract the booking core needs.
type CityRepository interface {
	// CheckExist fails with domain.ErrCityNotFound if any of the given
	// ids is unknown.
	CheckExist(ctx context.Context, ids ...uuid.UUID) error
}

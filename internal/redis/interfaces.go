package redis

import (
	"context"

	"github.com/google/uuid"

	"carpool/internal/domain"
)

// CacheStoreInterface defines the ride projection cache operations.
type CacheStoreInterface interface {
	GetRide(ctx context.Context, rideID uuid.UUID) (*domain.RideSnapshot, error)
	SetRide(ctx context.Context, snap domain.RideSnapshot) error
	InvalidateRide(ctx context.Context, rideID uuid.UUID) error
}

// Ensure concrete types implement interfaces.
var _ CacheStoreInterface = (*CacheStore)(nil)

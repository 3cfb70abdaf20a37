package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

// CacheStore holds the derived read projections of rides in Redis.
// Projections are disposable copies with their own TTL, never the
// authoritative aggregate.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	// RideFullTTL is long because every committed mutation evicts the
	// entry; expiry only backstops missed evictions.
	RideFullTTL = 48 * time.Hour
)

// Key patterns derived from the ride id.
const (
	rideFullKeyPattern    = "ride:%s:full"
	rideListingKeyPattern = "ride:%s:listing"
)

// FullRideKey returns the cache key of the full ride projection.
func FullRideKey(rideID uuid.UUID) string {
	return fmt.Sprintf(rideFullKeyPattern, rideID)
}

// ListingRideKey returns the cache key of the listing projection.
func ListingRideKey(rideID uuid.UUID) string {
	return fmt.Sprintf(rideListingKeyPattern, rideID)
}

// GetRide retrieves the full ride projection. A cache miss returns
// (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID uuid.UUID) (*domain.RideSnapshot, error) {
	data, err := s.client.Get(ctx, FullRideKey(rideID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var snap domain.RideSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetRide stores the full ride projection.
func (s *CacheStore) SetRide(ctx context.Context, snap domain.RideSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, FullRideKey(snap.ID), data, RideFullTTL).Err()
}

// InvalidateRide evicts every projection of the ride in one call.
// Runs as a post-commit hook, so it fires exactly once per committed
// mutation; a read between commit and eviction may still see the old
// projection for that short window.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID uuid.UUID) error {
	return s.client.Del(ctx, FullRideKey(rideID), ListingRideKey(rideID)).Err()
}

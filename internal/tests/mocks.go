package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// ──────────────────────────────────────────────
// FIXED CLOCK
// ──────────────────────────────────────────────

// FixedClock returns a configurable instant instead of wall time.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at the given instant.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ──────────────────────────────────────────────
// IN-MEMORY RIDE STORE
// ──────────────────────────────────────────────

// MemoryStore is the shared in-memory state behind the mock unit of
// work. Per-ride mutexes stand in for the database row lock: a unit of
// work that loaded a ride via GetActive keeps its mutex until Commit or
// Close, so a concurrent load of the same ride blocks exactly like the
// second transaction would.
type MemoryStore struct {
	mu     sync.RWMutex
	rides  map[uuid.UUID]domain.RideSnapshot
	cities map[uuid.UUID]struct{}

	rowMu    sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex

	clock domain.Clock

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(clock domain.Clock) *MemoryStore {
	return &MemoryStore{
		rides:    make(map[uuid.UUID]domain.RideSnapshot),
		cities:   make(map[uuid.UUID]struct{}),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
		clock:    clock,
	}
}

// AddCity registers a city id as existing.
func (s *MemoryStore) AddCity(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities[id] = struct{}{}
}

// AddRide seeds a ride.
func (s *MemoryStore) AddRide(ride *domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[ride.ID()] = ride.Snapshot()
}

// GetSnapshot returns the stored state of a ride for assertions.
func (s *MemoryStore) GetSnapshot(id uuid.UUID) (domain.RideSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rides[id]
	return snap, ok
}

// CountRides returns the number of stored rides.
func (s *MemoryStore) CountRides() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rides)
}

// rideLock returns the mutex guarding one ride row.
func (s *MemoryStore) rideLock(id uuid.UUID) *sync.Mutex {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()
	m, ok := s.rowLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[id] = m
	}
	return m
}

// Create implements the pool-backed repository surface.
func (s *MemoryStore) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&s.CreateCallCount, 1)
	if s.CreateError != nil {
		return s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[ride.ID()] = ride.Snapshot()
	return nil
}

// GetActive on the pool-backed surface reads without holding a lock.
func (s *MemoryStore) GetActive(ctx context.Context, id uuid.UUID) (*domain.Ride, error) {
	s.mu.RLock()
	snap, ok := s.rides[id]
	s.mu.RUnlock()
	if !ok || !s.isActive(snap) {
		return nil, domain.ErrActiveRideNotFound
	}
	return domain.LoadRide(snap, s.clock), nil
}

func (s *MemoryStore) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&s.UpdateCallCount, 1)
	if s.UpdateError != nil {
		return s.UpdateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rides[ride.ID()]; !ok {
		return repository.ErrNotFound
	}
	s.rides[ride.ID()] = ride.Snapshot()
	ride.ClearChangedFields()
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (domain.RideSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rides[id]
	if !ok {
		return domain.RideSnapshot{}, repository.ErrNotFound
	}
	return snap, nil
}

func (s *MemoryStore) ListByRoute(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayStart := params.DepartureDate.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var listings []repository.RideListing
	for _, snap := range s.rides {
		if snap.IsCancelled ||
			snap.Route.CityFrom != params.CityFrom ||
			snap.Route.CityTo != params.CityTo {
			continue
		}
		if snap.DepartureTime.Before(dayStart) || !snap.DepartureTime.Before(dayEnd) {
			continue
		}
		if snap.SeatsAvailable() < params.MinSeatsAvailable {
			continue
		}
		listings = append(listings, repository.RideListing{
			ID:             snap.ID,
			DepartureTime:  snap.DepartureTime,
			Price:          snap.Price,
			SeatsAvailable: snap.SeatsAvailable(),
			SeatsNumber:    snap.SeatsNumber,
		})
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].DepartureTime.Before(listings[j].DepartureTime)
	})
	return listings, nil
}

func (s *MemoryStore) isActive(snap domain.RideSnapshot) bool {
	return !snap.IsCancelled && snap.DepartureTime.After(s.clock.Now())
}

// CheckExist implements the city repository surface.
func (s *MemoryStore) CheckExist(ctx context.Context, ids ...uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if _, ok := s.cities[id]; !ok {
			return domain.ErrCityNotFound
		}
	}
	return nil
}

var (
	_ repository.RideRepository = (*MemoryStore)(nil)
	_ repository.CityRepository = (*MemoryStore)(nil)
)

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWorkStarter opens units of work over a MemoryStore.
type MockUnitOfWorkStarter struct {
	Store *MemoryStore

	// Counters for verification
	BeginCallCount  int32
	CommitCallCount int32

	// Error injection
	BeginError  error
	CommitError error
}

// NewMockUnitOfWorkStarter creates a starter over the given store.
func NewMockUnitOfWorkStarter(store *MemoryStore) *MockUnitOfWorkStarter {
	return &MockUnitOfWorkStarter{Store: store}
}

func (s *MockUnitOfWorkStarter) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	atomic.AddInt32(&s.BeginCallCount, 1)
	if s.BeginError != nil {
		return nil, s.BeginError
	}
	uow := &MockUnitOfWork{
		starter: s,
		pending: make(map[uuid.UUID]domain.RideSnapshot),
		held:    make(map[uuid.UUID]*sync.Mutex),
	}
	uow.rides = &txRideRepository{uow: uow}
	return uow, nil
}

// MockUnitOfWork buffers writes and holds row locks until Commit or
// Close, mirroring the transactional implementation.
type MockUnitOfWork struct {
	starter *MockUnitOfWorkStarter
	rides   *txRideRepository

	pending   map[uuid.UUID]domain.RideSnapshot
	held      map[uuid.UUID]*sync.Mutex
	hooks     []func(ctx context.Context)
	committed bool
}

func (u *MockUnitOfWork) Rides() repository.RideRepository { return u.rides }
func (u *MockUnitOfWork) Cities() repository.CityRepository {
	return u.starter.Store
}

func (u *MockUnitOfWork) OnCommit(hook func(ctx context.Context)) {
	u.hooks = append(u.hooks, hook)
}

func (u *MockUnitOfWork) Commit(ctx context.Context) error {
	atomic.AddInt32(&u.starter.CommitCallCount, 1)
	if u.starter.CommitError != nil {
		return u.starter.CommitError
	}

	store := u.starter.Store
	store.mu.Lock()
	for id, snap := range u.pending {
		store.rides[id] = snap
	}
	store.mu.Unlock()

	u.committed = true
	u.releaseLocks()

	for _, hook := range u.hooks {
		hook(ctx)
	}
	return nil
}

func (u *MockUnitOfWork) Close() error {
	if !u.committed {
		u.pending = make(map[uuid.UUID]domain.RideSnapshot)
		u.releaseLocks()
	}
	return nil
}

func (u *MockUnitOfWork) releaseLocks() {
	for id, m := range u.held {
		m.Unlock()
		delete(u.held, id)
	}
}

// txRideRepository is the transaction-scoped ride repository of a mock
// unit of work.
type txRideRepository struct {
	uow *MockUnitOfWork
}

func (r *txRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	store := r.uow.starter.Store
	atomic.AddInt32(&store.CreateCallCount, 1)
	if store.CreateError != nil {
		return store.CreateError
	}
	r.uow.pending[ride.ID()] = ride.Snapshot()
	return nil
}

// GetActive blocks on the ride's row lock like SELECT ... FOR UPDATE
// and keeps it until the unit of work ends.
func (r *txRideRepository) GetActive(ctx context.Context, id uuid.UUID) (*domain.Ride, error) {
	uow := r.uow
	store := uow.starter.Store

	if _, held := uow.held[id]; !held {
		m := store.rideLock(id)
		m.Lock()
		uow.held[id] = m
	}

	store.mu.RLock()
	snap, ok := store.rides[id]
	store.mu.RUnlock()

	if !ok || !store.isActive(snap) {
		if m, held := uow.held[id]; held {
			m.Unlock()
			delete(uow.held, id)
		}
		return nil, domain.ErrActiveRideNotFound
	}
	return domain.LoadRide(snap, store.clock), nil
}

func (r *txRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	store := r.uow.starter.Store
	atomic.AddInt32(&store.UpdateCallCount, 1)
	if store.UpdateError != nil {
		return store.UpdateError
	}
	r.uow.pending[ride.ID()] = ride.Snapshot()
	ride.ClearChangedFields()
	return nil
}

func (r *txRideRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.RideSnapshot, error) {
	return r.uow.starter.Store.GetByID(ctx, id)
}

func (r *txRideRepository) ListByRoute(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
	return r.uow.starter.Store.ListByRoute(ctx, params)
}

var (
	_ repository.UnitOfWorkStarter = (*MockUnitOfWorkStarter)(nil)
	_ repository.UnitOfWork        = (*MockUnitOfWork)(nil)
	_ repository.RideRepository    = (*txRideRepository)(nil)
)

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory ride projection cache.
type MockCacheStore struct {
	mu    sync.RWMutex
	rides map[uuid.UUID]domain.RideSnapshot

	// Counters for verification
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32

	// Error injection
	GetError        error
	SetError        error
	InvalidateError error
}

// NewMockCacheStore creates an empty cache.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{rides: make(map[uuid.UUID]domain.RideSnapshot)}
}

func (m *MockCacheStore) GetRide(ctx context.Context, rideID uuid.UUID) (*domain.RideSnapshot, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MockCacheStore) SetRide(ctx context.Context, snap domain.RideSnapshot) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[snap.ID] = snap
	return nil
}

func (m *MockCacheStore) InvalidateRide(ctx context.Context, rideID uuid.UUID) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	if m.InvalidateError != nil {
		return m.InvalidateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

var _ redis.CacheStoreInterface = (*MockCacheStore)(nil)

// HasRide reports whether a projection is cached.
func (m *MockCacheStore) HasRide(rideID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rides[rideID]
	return ok
}

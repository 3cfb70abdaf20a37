package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/repository"
	"carpool/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRideService lets each test pin just the method it exercises.
type stubRideService struct {
	createFn func(ctx context.Context, req service.CreateRideRequest) (*domain.Ride, error)
	updateFn func(ctx context.Context, req service.UpdateRideRequest) (*domain.Ride, error)
	cancelFn func(ctx context.Context, rideID, userID uuid.UUID) error
	bookFn   func(ctx context.Context, req service.BookRideRequest) (*domain.Ride, error)
	leaveFn  func(ctx context.Context, rideID, passengerID uuid.UUID) error
	getFn    func(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error)
	filterFn func(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error)
}

func (s *stubRideService) Create(ctx context.Context, req service.CreateRideRequest) (*domain.Ride, error) {
	return s.createFn(ctx, req)
}

func (s *stubRideService) Update(ctx context.Context, req service.UpdateRideRequest) (*domain.Ride, error) {
	return s.updateFn(ctx, req)
}

func (s *stubRideService) Cancel(ctx context.Context, rideID, userID uuid.UUID) error {
	return s.cancelFn(ctx, rideID, userID)
}

func (s *stubRideService) Book(ctx context.Context, req service.BookRideRequest) (*domain.Ride, error) {
	return s.bookFn(ctx, req)
}

func (s *stubRideService) Leave(ctx context.Context, rideID, passengerID uuid.UUID) error {
	return s.leaveFn(ctx, rideID, passengerID)
}

func (s *stubRideService) Get(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error) {
	return s.getFn(ctx, rideID)
}

func (s *stubRideService) Filter(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
	return s.filterFn(ctx, params)
}

var handlerBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type handlerClock struct{}

func (handlerClock) Now() time.Time { return handlerBase }

func buildRide(t *testing.T, owner uuid.UUID) *domain.Ride {
	t.Helper()
	ride, err := domain.NewRide(domain.CreateRideParams{
		OwnerID:       owner,
		Route:         domain.Route{CityFrom: uuid.New(), CityTo: uuid.New()},
		DepartureTime: handlerBase.Add(24 * time.Hour),
		Price:         domain.Price{Currency: domain.CurrencyEURCent, Value: 2500},
		SeatsNumber:   3,
	}, handlerClock{})
	require.NoError(t, err)
	return ride
}

// newTestRouter mounts the handler behind a middleware that injects the
// given user, sidestepping real JWT auth.
func newTestRouter(svc RideService, userID uuid.UUID) *gin.Engine {
	h := NewRideHandler(svc)
	router := gin.New()
	if userID != uuid.Nil {
		router.Use(func(c *gin.Context) { middleware.SetUserID(c, userID) })
	}

	v1 := router.Group("/v1")
	rides := v1.Group("/rides")
	rides.GET("", h.ListRides)
	rides.GET("/:id", h.GetRide)
	rides.POST("", h.CreateRide)
	rides.PATCH("/:id", h.UpdateRide)
	rides.POST("/:id/cancel", h.CancelRide)
	rides.POST("/:id/passengers", h.BookRide)
	rides.DELETE("/:id/passengers", h.LeaveRide)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRide_Success(t *testing.T) {
	owner := uuid.New()
	ride := buildRide(t, owner)
	svc := &stubRideService{
		createFn: func(ctx context.Context, req service.CreateRideRequest) (*domain.Ride, error) {
			assert.Equal(t, owner, req.OwnerID)
			assert.Equal(t, domain.CurrencyEURCent, req.PriceCurrency)
			return ride, nil
		},
	}
	router := newTestRouter(svc, owner)

	w := doJSON(router, http.MethodPost, "/v1/rides", CreateRideRequest{
		CityFrom:      uuid.New().String(),
		CityTo:        uuid.New().String(),
		DepartureTime: handlerBase.Add(24 * time.Hour),
		PriceCurrency: "EUR_cent",
		PriceValue:    2500,
		SeatsNumber:   3,
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp RideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ride.ID(), resp.ID)
	assert.Equal(t, owner, resp.OwnerID)
	assert.Equal(t, 3, resp.SeatsAvailable)
	assert.False(t, resp.IsCancelled)
}

func TestCreateRide_Unauthenticated(t *testing.T) {
	router := newTestRouter(&stubRideService{}, uuid.Nil)

	w := doJSON(router, http.MethodPost, "/v1/rides", CreateRideRequest{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRide_InvalidCity(t *testing.T) {
	router := newTestRouter(&stubRideService{}, uuid.New())

	w := doJSON(router, http.MethodPost, "/v1/rides", CreateRideRequest{
		CityFrom: "not-a-uuid",
		CityTo:   uuid.New().String(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRide_DomainErrorCarriesCode(t *testing.T) {
	svc := &stubRideService{
		createFn: func(ctx context.Context, req service.CreateRideRequest) (*domain.Ride, error) {
			return nil, domain.ErrInvalidDepartureTime
		},
	}
	router := newTestRouter(svc, uuid.New())

	w := doJSON(router, http.MethodPost, "/v1/rides", CreateRideRequest{
		CityFrom: uuid.New().String(),
		CityTo:   uuid.New().String(),
	})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Code)
	assert.Equal(t, domain.ErrInvalidDepartureTime.Code, *resp.Code)
}

func TestGetRide_Success(t *testing.T) {
	ride := buildRide(t, uuid.New())
	svc := &stubRideService{
		getFn: func(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error) {
			assert.Equal(t, ride.ID(), rideID)
			return ride.Snapshot(), nil
		},
	}
	router := newTestRouter(svc, uuid.Nil)

	w := doJSON(router, http.MethodGet, "/v1/rides/"+ride.ID().String(), nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ride.ID(), resp.ID)
	assert.Equal(t, ride.Route().CityFrom, resp.CityFrom)
}

func TestGetRide_NotFound(t *testing.T) {
	svc := &stubRideService{
		getFn: func(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error) {
			return domain.RideSnapshot{}, repository.ErrNotFound
		},
	}
	router := newTestRouter(svc, uuid.Nil)

	w := doJSON(router, http.MethodGet, "/v1/rides/"+uuid.New().String(), nil)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Code)
}

func TestBookRide_Full(t *testing.T) {
	userID := uuid.New()
	svc := &stubRideService{
		bookFn: func(ctx context.Context, req service.BookRideRequest) (*domain.Ride, error) {
			assert.Equal(t, userID, req.PassengerID)
			assert.Equal(t, 2, req.Seats)
			return nil, domain.ErrRideIsFull
		},
	}
	router := newTestRouter(svc, userID)

	w := doJSON(router, http.MethodPost, "/v1/rides/"+uuid.New().String()+"/passengers", BookRideRequest{Seats: 2})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Code)
	assert.Equal(t, domain.ErrRideIsFull.Code, *resp.Code)
}

func TestCancelRide_Forbidden(t *testing.T) {
	svc := &stubRideService{
		cancelFn: func(ctx context.Context, rideID, userID uuid.UUID) error {
			return service.ErrNotRideOwner
		},
	}
	router := newTestRouter(svc, uuid.New())

	w := doJSON(router, http.MethodPost, "/v1/rides/"+uuid.New().String()+"/cancel", nil)

	require.Equal(t, http.StatusForbidden, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Code)
}

func TestCancelRide_Success(t *testing.T) {
	userID := uuid.New()
	rideID := uuid.New()
	svc := &stubRideService{
		cancelFn: func(ctx context.Context, gotRide, gotUser uuid.UUID) error {
			assert.Equal(t, rideID, gotRide)
			assert.Equal(t, userID, gotUser)
			return nil
		},
	}
	router := newTestRouter(svc, userID)

	w := doJSON(router, http.MethodPost, "/v1/rides/"+rideID.String()+"/cancel", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLeaveRide_Success(t *testing.T) {
	userID := uuid.New()
	svc := &stubRideService{
		leaveFn: func(ctx context.Context, rideID, passengerID uuid.UUID) error {
			assert.Equal(t, userID, passengerID)
			return nil
		},
	}
	router := newTestRouter(svc, userID)

	w := doJSON(router, http.MethodDelete, "/v1/rides/"+uuid.New().String()+"/passengers", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUpdateRide_PartialBody(t *testing.T) {
	owner := uuid.New()
	ride := buildRide(t, owner)
	svc := &stubRideService{
		updateFn: func(ctx context.Context, req service.UpdateRideRequest) (*domain.Ride, error) {
			require.NotNil(t, req.SeatsNumber)
			assert.Equal(t, 4, *req.SeatsNumber)
			assert.Nil(t, req.DepartureTime)
			assert.Nil(t, req.PriceCurrency)
			return ride, nil
		},
	}
	router := newTestRouter(svc, owner)

	seats := 4
	w := doJSON(router, http.MethodPatch, "/v1/rides/"+ride.ID().String(), UpdateRideRequest{SeatsNumber: &seats})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRides_Success(t *testing.T) {
	listing := repository.RideListing{
		ID:             uuid.New(),
		DepartureTime:  handlerBase.Add(24 * time.Hour),
		Price:          domain.Price{Currency: domain.CurrencyEURCent, Value: 2500},
		SeatsAvailable: 2,
		SeatsNumber:    3,
	}
	cityFrom := uuid.New()
	cityTo := uuid.New()
	svc := &stubRideService{
		filterFn: func(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error) {
			assert.Equal(t, cityFrom, params.CityFrom)
			assert.Equal(t, cityTo, params.CityTo)
			assert.Equal(t, 2, params.MinSeatsAvailable)
			return []repository.RideListing{listing}, nil
		},
	}
	router := newTestRouter(svc, uuid.Nil)

	w := doJSON(router, http.MethodGet,
		"/v1/rides?city_from="+cityFrom.String()+"&city_to="+cityTo.String()+"&departure_date=2026-03-15&min_seats=2", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []repository.RideListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, listing.ID, resp[0].ID)
}

func TestListRides_MissingDate(t *testing.T) {
	router := newTestRouter(&stubRideService{}, uuid.Nil)

	w := doJSON(router, http.MethodGet,
		"/v1/rides?city_from="+uuid.New().String()+"&city_to="+uuid.New().String(), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

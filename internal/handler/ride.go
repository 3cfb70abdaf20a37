package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// RideService is the use-case surface the handler depends on.
type RideService interface {
	Create(ctx context.Context, req service.CreateRideRequest) (*domain.Ride, error)
	Update(ctx context.Context, req service.UpdateRideRequest) (*domain.Ride, error)
	Cancel(ctx context.Context, rideID, userID uuid.UUID) error
	Book(ctx context.Context, req service.BookRideRequest) (*domain.Ride, error)
	Leave(ctx context.Context, rideID, passengerID uuid.UUID) error
	Get(ctx context.Context, rideID uuid.UUID) (domain.RideSnapshot, error)
	Filter(ctx context.Context, params repository.FilterParams) ([]repository.RideListing, error)
}

var _ RideService = (*service.RideService)(nil)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// CreateRideRequest is the HTTP request body for publishing a ride.
type CreateRideRequest struct {
	CityFrom      string    `json:"city_from"`
	CityTo        string    `json:"city_to"`
	DepartureTime time.Time `json:"departure_time"`
	Description   string    `json:"description,omitempty"`
	PriceCurrency string    `json:"price_currency"`
	PriceValue    int64     `json:"price_value"`
	SeatsNumber   int       `json:"seats_number"`
}

// UpdateRideRequest is the HTTP request body for changing a ride.
// Absent fields are left untouched.
type UpdateRideRequest struct {
	DepartureTime *time.Time `json:"departure_time"`
	Description   *string    `json:"description"`
	PriceCurrency *string    `json:"price_currency"`
	PriceValue    *int64     `json:"price_value"`
	SeatsNumber   *int       `json:"seats_number"`
}

// BookRideRequest is the HTTP request body for booking seats.
type BookRideRequest struct {
	Seats int `json:"seats"`
}

// RideResponse is the full ride view returned by mutating and detail
// endpoints.
type RideResponse struct {
	ID             uuid.UUID           `json:"id"`
	OwnerID        uuid.UUID           `json:"owner_id"`
	CityFrom       uuid.UUID           `json:"city_from"`
	CityTo         uuid.UUID           `json:"city_to"`
	DepartureTime  time.Time           `json:"departure_time"`
	Description    string              `json:"description,omitempty"`
	Price          domain.Price        `json:"price"`
	SeatsNumber    int                 `json:"seats_number"`
	SeatsAvailable int                 `json:"seats_available"`
	IsCancelled    bool                `json:"is_cancelled"`
	Passengers     []PassengerResponse `json:"passengers"`
	CreatedAt      time.Time           `json:"created_at"`
}

// PassengerResponse is one booking entry of a ride.
type PassengerResponse struct {
	ID          uuid.UUID `json:"id"`
	SeatsBooked int       `json:"seats_booked"`
}

func rideResponse(snap domain.RideSnapshot) RideResponse {
	passengers := make([]PassengerResponse, 0, len(snap.Passengers))
	for _, p := range snap.Passengers {
		passengers = append(passengers, PassengerResponse{ID: p.ID, SeatsBooked: p.SeatsBooked})
	}

	return RideResponse{
		ID:             snap.ID,
		OwnerID:        snap.OwnerID,
		CityFrom:       snap.Route.CityFrom,
		CityTo:         snap.Route.CityTo,
		DepartureTime:  snap.DepartureTime,
		Description:    snap.Description,
		Price:          snap.Price,
		SeatsNumber:    snap.SeatsNumber,
		SeatsAvailable: snap.SeatsAvailable(),
		IsCancelled:    snap.IsCancelled,
		Passengers:     passengers,
		CreatedAt:      snap.CreatedAt,
	}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cityFrom, err := uuid.Parse(req.CityFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid city_from"})
		return
	}
	cityTo, err := uuid.Parse(req.CityTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid city_to"})
		return
	}

	ride, err := h.rideService.Create(c.Request.Context(), service.CreateRideRequest{
		OwnerID:       userID,
		CityFrom:      cityFrom,
		CityTo:        cityTo,
		DepartureTime: req.DepartureTime,
		Description:   req.Description,
		PriceCurrency: domain.Currency(req.PriceCurrency),
		PriceValue:    req.PriceValue,
		SeatsNumber:   req.SeatsNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, rideResponse(ride.Snapshot()))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	snap, err := h.rideService.Get(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(snap))
}

// ListRides handles GET /v1/rides
func (h *RideHandler) ListRides(c *gin.Context) {
	cityFrom, err := uuid.Parse(c.Query("city_from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid city_from"})
		return
	}
	cityTo, err := uuid.Parse(c.Query("city_to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid city_to"})
		return
	}
	departureDate, err := time.Parse("2006-01-02", c.Query("departure_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid departure_date, expected YYYY-MM-DD"})
		return
	}

	minSeats := 1
	if raw := c.Query("min_seats"); raw != "" {
		minSeats, err = strconv.Atoi(raw)
		if err != nil || minSeats < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid min_seats"})
			return
		}
	}

	listings, err := h.rideService.Filter(c.Request.Context(), repository.FilterParams{
		CityFrom:          cityFrom,
		CityTo:            cityTo,
		DepartureDate:     departureDate,
		MinSeatsAvailable: minSeats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if listings == nil {
		listings = []repository.RideListing{}
	}
	respondJSON(c, http.StatusOK, listings)
}

// UpdateRide handles PATCH /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq := service.UpdateRideRequest{
		RideID:        rideID,
		UserID:        userID,
		DepartureTime: req.DepartureTime,
		Description:   req.Description,
		PriceValue:    req.PriceValue,
		SeatsNumber:   req.SeatsNumber,
	}
	if req.PriceCurrency != nil {
		currency := domain.Currency(*req.PriceCurrency)
		svcReq.PriceCurrency = &currency
	}

	ride, err := h.rideService.Update(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride.Snapshot()))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	if err := h.rideService.Cancel(c.Request.Context(), rideID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BookRide handles POST /v1/rides/:id/passengers
func (h *RideHandler) BookRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	var req BookRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Book(c.Request.Context(), service.BookRideRequest{
		RideID:      rideID,
		PassengerID: userID,
		Seats:       req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride.Snapshot()))
}

// LeaveRide handles DELETE /v1/rides/:id/passengers
func (h *RideHandler) LeaveRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ride id"})
		return
	}

	if err := h.rideService.Leave(c.Request.Context(), rideID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

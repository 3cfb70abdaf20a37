package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse is the error body. Code is the stable business error
// code clients branch on; it is null for errors without one.
type ErrorResponse struct {
	Code  *int   `json:"code"`
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	body := ErrorResponse{Error: err.Error()}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		code := domainErr.Code
		body.Code = &code
	}

	c.JSON(mapErrorToHTTPStatus(err), body)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps domain/service/repository errors to HTTP
// status codes. Unknown errors are infrastructure failures: 500, safe to
// retry because the unit of work rolled everything back.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found
	case errors.Is(err, domain.ErrActiveRideNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Authorization
	case errors.Is(err, service.ErrNotRideOwner):
		return http.StatusForbidden

	// Validation errors - Bad Request
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidRoute),
		errors.Is(err, domain.ErrInvalidSeats),
		errors.Is(err, domain.ErrInvalidDepartureTime),
		errors.Is(err, domain.ErrInvalidSeatsBooked),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrCityNotFound),
		errors.Is(err, service.ErrNoFieldsToUpdate):
		return http.StatusBadRequest

	// Business-rule conflicts
	case errors.Is(err, domain.ErrMutationDisallowed),
		errors.Is(err, domain.ErrSeatsBelowBooked),
		errors.Is(err, domain.ErrCannotCancel),
		errors.Is(err, domain.ErrDuplicatePassenger),
		errors.Is(err, domain.ErrNotAPassenger),
		errors.Is(err, domain.ErrRideIsFull),
		errors.Is(err, domain.ErrOwnerIsPassenger):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

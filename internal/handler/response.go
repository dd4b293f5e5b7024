package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"transferledger/internal/repository"
	"transferledger/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Already completed is reported with the stored settlement
	case errors.Is(err, service.ErrAlreadyCompleted):
		return http.StatusOK

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCommissionRate),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidLedgerKind),
		errors.Is(err, service.ErrInvalidTrigger),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidAssignment),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUnassigned),
		errors.Is(err, service.ErrPriceLocked),
		errors.Is(err, service.ErrDuplicatePayout),
		errors.Is(err, service.ErrDriverExists),
		errors.Is(err, service.ErrTripSettledForOtherDriver),
		errors.Is(err, service.ErrLedgerInconsistent):
		return http.StatusConflict

	// Nothing was written; the caller may retry
	case errors.Is(err, service.ErrLedgerWriteFailed):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

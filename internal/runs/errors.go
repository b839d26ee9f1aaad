package runs

import (
	"errors"
	"net/http"
)

// Domain errors for batch run operations.
var (
	ErrNotFound          = errors.New("run not found")
	ErrDuplicate         = errors.New("run already exists")
	ErrInvalidInput      = errors.New("invalid run request")
	ErrEventNotFound     = errors.New("event not found")
	ErrReportUnavailable = errors.New("run report not available")
)

// MapHTTPStatus maps run domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEventNotFound), errors.Is(err, ErrReportUnavailable):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

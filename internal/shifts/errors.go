package shifts

import (
	"errors"
	"net/http"
)

// Domain errors for shift operations.
var (
	ErrNotFound     = errors.New("shift not found")
	ErrDuplicate    = errors.New("shift already exists")
	ErrMalformed    = errors.New("malformed shift record")
	ErrInvalidInput = errors.New("invalid shift request")
)

// MapHTTPStatus maps shift domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

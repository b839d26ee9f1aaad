package events

import (
	"errors"
	"net/http"
)

// Domain errors for event operations.
var (
	ErrNotFound     = errors.New("event not found")
	ErrDuplicate    = errors.New("event already exists")
	ErrMalformed    = errors.New("malformed event record")
	ErrInvalidInput = errors.New("invalid event request")
)

// MapHTTPStatus maps event domain errors to appropriate HTTP status codes.
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

package matches

import (
	"errors"
	"net/http"
)

// Domain errors for match ledger operations.
var (
	ErrNotFound          = errors.New("match not found")
	ErrDuplicate         = errors.New("match already exists")
	ErrEventNotFound     = errors.New("event not found")
	ErrReferenceNotFound = errors.New("referenced shift or run not found")
	ErrInvalidInput      = errors.New("invalid match request")
)

// ErrAlreadyAttributed is returned by RecordAuto when the event already
// carries matches or another writer claimed it first.
var ErrAlreadyAttributed = errors.New("event already attributed")

// MapHTTPStatus maps match domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEventNotFound), errors.Is(err, ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrAlreadyAttributed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package attribution

import "errors"

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrInvalidConfig  = errors.New("invalid attribution config")
)

package gateway

import "errors"

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrRejected          = errors.New("request rejected")
	ErrMalformedResponse = errors.New("malformed response")
)

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

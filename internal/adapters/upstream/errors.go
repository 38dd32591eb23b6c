package upstream

import "errors"

var (
	// ErrNotFound is returned when the upstream has no record for the key.
	ErrNotFound = errors.New("upstream record not found")
	// ErrUnavailable is returned on transport failures, timeouts and non-2xx
	// responses other than 404.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrDecode is returned when a response body cannot be decoded.
	ErrDecode = errors.New("upstream response decode failed")
	// ErrCircuitOpen is returned when the breaker rejects the call.
	ErrCircuitOpen = errors.New("upstream circuit open")
	// ErrCanceled is returned when the caller's context ended before the
	// upstream answered. It says nothing about upstream health.
	ErrCanceled = errors.New("upstream call abandoned by caller")
)

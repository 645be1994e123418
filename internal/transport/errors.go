package transport

import "errors"

var (
	// ErrLockedOut is returned when the DS responds 429 due to the
	// per-IP brute-force lockout (spec.md section 4.4).
	ErrLockedOut = errors.New("transport: ip locked out by delivery service")

	// ErrUnexpectedStatus wraps any other non-2xx response.
	ErrUnexpectedStatus = errors.New("transport: unexpected response status")
)

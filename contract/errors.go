package contract

import "errors"

// Error kinds returned by registry, token and access-control operations. Callers
// match them with errors.Is; the wrapping message carries the details.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
	ErrFlagged      = errors.New("flagged")
)

package domain

import "errors"

var (
	// ErrInvalidRequest marks input that fails validation before any provider call.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMalformedResponse marks a provider response missing a field the
	// translation depends on.
	ErrMalformedResponse = errors.New("malformed provider response")
)

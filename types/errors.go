package types

import "github.com/cockroachdb/errors"

// Failure kinds shared by the API client and the booking flow.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrBadRequest      = errors.New("bad request")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid response")
)

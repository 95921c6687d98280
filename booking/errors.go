package booking

import "github.com/cockroachdb/errors"

var (
	// ErrUnauthenticated means there is no session token; the caller should
	// show a login prompt instead of retrying.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrValidation covers attempts to advance with no date or with an
	// empty or split selection.
	ErrValidation         = errors.New("invalid selection")
	ErrWrongState         = errors.New("operation not allowed in current state")
	ErrSubmissionInFlight = errors.New("booking submission already in progress")
	ErrFlowClosed         = errors.New("booking dialog closed")
	ErrStaleSnapshot      = errors.New("availability snapshot does not match dialog")
	ErrNoAvailability     = errors.New("availability not loaded")
)

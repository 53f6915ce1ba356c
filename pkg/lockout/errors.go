package lockout

import "errors"

var (
	// ErrInvalidConfig indicates a non-positive threshold or block duration.
	ErrInvalidConfig = errors.New("invalid lockout configuration")

	// ErrEmptyKey indicates an empty origin or context id.
	ErrEmptyKey = errors.New("origin and context id must not be empty")

	// ErrStoreUnavailable indicates the attempt-record store failed.
	ErrStoreUnavailable = errors.New("lockout store unavailable")
)

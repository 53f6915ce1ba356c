package vault

import (
	"errors"

	"github.com/lockboxhq/lockbox/pkg/lockout"
)

var (
	// Validation failures. Recoverable by correcting the input.
	ErrNameTooShort = errors.New("context name must be at least 3 characters long")
	ErrNameTooLong  = errors.New("context name must be at most 255 characters long")
	ErrNameTaken    = errors.New("a context with this name already exists")
	ErrEmptyText    = errors.New("text to encrypt cannot be empty")
	ErrTextTooLarge = errors.New("text to encrypt exceeds the maximum size")
	ErrSameSecret   = errors.New("new secret must differ from the current one")

	// ErrNotFound covers a context or record that is absent or not owned by
	// the caller; the two cases are deliberately not distinguished.
	ErrNotFound = errors.New("context or record not found")

	// ErrInvalidKey means verification rejected the supplied secret.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrLockedOut means the origin is inside its lockout window for this
	// context. Retrying before the window elapses cannot succeed.
	ErrLockedOut = errors.New("too many failed attempts")
)

// AccessError carries the lockout status alongside a denial, so callers can
// surface remaining attempts or minutes until the block lifts. It matches
// ErrInvalidKey or ErrLockedOut through errors.Is.
type AccessError struct {
	reason error
	Status lockout.Status
}

func (e *AccessError) Error() string {
	if e.Status.Message != "" {
		return e.Status.Message
	}
	return e.reason.Error()
}

func (e *AccessError) Unwrap() error { return e.reason }

func newAccessError(reason error, status lockout.Status) *AccessError {
	return &AccessError{reason: reason, Status: status}
}

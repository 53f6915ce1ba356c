package lockout

import (
	"fmt"
	"time"
)

// Config defines the lockout policy.
type Config struct {
	// MaxAttempts is the number of consecutive failures that triggers a
	// block. The canonical threshold is 5.
	MaxAttempts int `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`

	// BlockDuration is how long a blocked pair stays blocked.
	BlockDuration time.Duration `env:"LOCKOUT_BLOCK_DURATION" envDefault:"15m"`
}

func (c Config) validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("%w: block duration must be positive, got %v", ErrInvalidConfig, c.BlockDuration)
	}
	return nil
}

// withDefaults fills zero fields so NewLimiter(store, Config{}) works out of
// the box with the canonical policy.
func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BlockDuration == 0 {
		c.BlockDuration = 15 * time.Minute
	}
	return c
}

// Status is the outcome of a lockout check or a recorded failure.
type Status struct {
	Blocked           bool          // Whether the pair is currently blocked
	RemainingAttempts int           // Failures left before a block (when not blocked)
	RetryIn           time.Duration // Time until the block lifts (when blocked)
	Message           string        // Human-readable summary for API responses
}

// MinutesRemaining returns the ceiling of RetryIn in whole minutes.
func (s Status) MinutesRemaining() int {
	if s.RetryIn <= 0 {
		return 0
	}
	return int((s.RetryIn + time.Minute - 1) / time.Minute)
}

// Record is the persisted attempt state for one (origin, context) pair.
// A zero BlockedUntil means the pair has never crossed the threshold.
type Record struct {
	Attempts     int
	BlockedUntil time.Time
}

// expired reports whether the record carries a block that has already lifted.
func (r Record) expired(now time.Time) bool {
	return !r.BlockedUntil.IsZero() && !r.BlockedUntil.After(now)
}

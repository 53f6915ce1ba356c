package lockout

import (
	"context"
	"time"
)

// Store persists attempt records. Implementations must make Increment atomic:
// concurrent calls for the same key may never observe the same pre-increment
// count.
type Store interface {
	// Get returns the record for key, or a zero Record when absent.
	Get(ctx context.Context, key string) (Record, error)

	// Increment adds one failure to key and returns the updated record.
	// A record whose block has already expired is restarted at one failure.
	// When the updated count reaches blockAfter, the implementation sets
	// BlockedUntil to now + blockFor as part of the same atomic step.
	Increment(ctx context.Context, key string, blockAfter int, blockFor time.Duration) (Record, error)

	// Reset deletes the record for key.
	Reset(ctx context.Context, key string) error

	// SweepExpired deletes records whose block has lifted and returns how
	// many were removed. Purely storage reclamation; Get already treats
	// expired records as open.
	SweepExpired(ctx context.Context) (int64, error)
}

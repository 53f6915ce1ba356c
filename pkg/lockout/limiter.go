package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Limiter applies the lockout policy on top of a Store. It holds no state of
// its own and is safe for concurrent use.
type Limiter struct {
	store Store
	cfg   Config
}

// NewLimiter creates a Limiter. Zero Config fields fall back to the canonical
// policy (5 attempts, 15 minute block).
func NewLimiter(store Store, cfg Config) (*Limiter, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

// MaxAttempts returns the configured failure threshold.
func (l *Limiter) MaxAttempts() int { return l.cfg.MaxAttempts }

// key builds the storage key for one (origin, context) pair.
func key(origin, contextID string) string {
	return origin + ":" + contextID
}

// Check reports the current state for the pair without mutating the failure
// count. An expired block is treated as open and the record is cleared.
func (l *Limiter) Check(ctx context.Context, origin, contextID string) (Status, error) {
	if origin == "" || contextID == "" {
		return Status{}, ErrEmptyKey
	}

	rec, err := l.store.Get(ctx, key(origin, contextID))
	if err != nil {
		return Status{}, errors.Join(ErrStoreUnavailable, err)
	}

	now := time.Now()

	if !rec.BlockedUntil.IsZero() && rec.BlockedUntil.After(now) {
		st := Status{Blocked: true, RetryIn: rec.BlockedUntil.Sub(now)}
		st.Message = fmt.Sprintf("Too many failed attempts. Try again in %d minutes.", st.MinutesRemaining())
		return st, nil
	}

	if rec.expired(now) {
		// Lazy expiry: clear the stale record so the pair starts fresh.
		// Best effort; Get already treats it as open either way.
		_ = l.store.Reset(ctx, key(origin, contextID))
		return Status{RemainingAttempts: l.cfg.MaxAttempts}, nil
	}

	remaining := max(l.cfg.MaxAttempts-rec.Attempts, 0)
	return Status{RemainingAttempts: remaining}, nil
}

// RecordFailure counts one failed verification for the pair. Crossing the
// threshold sets the block; the store performs the count-and-block step
// atomically.
func (l *Limiter) RecordFailure(ctx context.Context, origin, contextID string) (Status, error) {
	if origin == "" || contextID == "" {
		return Status{}, ErrEmptyKey
	}

	rec, err := l.store.Increment(ctx, key(origin, contextID), l.cfg.MaxAttempts, l.cfg.BlockDuration)
	if err != nil {
		return Status{}, errors.Join(ErrStoreUnavailable, err)
	}

	if rec.Attempts >= l.cfg.MaxAttempts {
		st := Status{Blocked: true, RetryIn: time.Until(rec.BlockedUntil)}
		st.Message = fmt.Sprintf("Too many failed attempts. Access blocked for %d minutes.",
			int(l.cfg.BlockDuration/time.Minute))
		return st, nil
	}

	remaining := max(l.cfg.MaxAttempts-rec.Attempts, 0)
	return Status{
		RemainingAttempts: remaining,
		Message:           fmt.Sprintf("Invalid encryption key. %d attempts remaining.", remaining),
	}, nil
}

// Reset clears the failure record for the pair. Called exactly once, right
// after a successful verification.
func (l *Limiter) Reset(ctx context.Context, origin, contextID string) error {
	if origin == "" || contextID == "" {
		return ErrEmptyKey
	}
	if err := l.store.Reset(ctx, key(origin, contextID)); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SweepExpired removes records whose block has lifted. Housekeeping only.
func (l *Limiter) SweepExpired(ctx context.Context) (int64, error) {
	count, err := l.store.SweepExpired(ctx)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return count, nil
}

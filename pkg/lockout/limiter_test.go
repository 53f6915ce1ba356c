package lockout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxhq/lockbox/pkg/lockout"
)

func newLimiter(t *testing.T, cfg lockout.Config) *lockout.Limiter {
	t.Helper()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))
	limiter, err := lockout.NewLimiter(store, cfg)
	require.NoError(t, err)
	return limiter
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	t.Run("zero config uses canonical policy", func(t *testing.T) {
		t.Parallel()
		limiter := newLimiter(t, lockout.Config{})
		require.Equal(t, 5, limiter.MaxAttempts())
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		t.Parallel()
		store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))
		_, err := lockout.NewLimiter(store, lockout.Config{MaxAttempts: -1, BlockDuration: time.Minute})
		require.ErrorIs(t, err, lockout.ErrInvalidConfig)

		_, err = lockout.NewLimiter(store, lockout.Config{MaxAttempts: 3, BlockDuration: -time.Second})
		require.ErrorIs(t, err, lockout.ErrInvalidConfig)
	})
}

func TestLimiter_Check_FreshPair(t *testing.T) {
	t.Parallel()
	limiter := newLimiter(t, lockout.Config{})

	status, err := limiter.Check(context.Background(), "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Equal(t, 5, status.RemainingAttempts)
}

func TestLimiter_ThresholdBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{})

	// Failures 1..4 stay unblocked with a decreasing remaining count.
	for i := 1; i <= 4; i++ {
		status, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
		require.NoError(t, err)
		assert.False(t, status.Blocked, "failure %d must not block", i)
		assert.Equal(t, 5-i, status.RemainingAttempts, "failure %d", i)
		assert.Contains(t, status.Message, "attempts remaining")
	}

	// The 4th failure leaves exactly one attempt.
	status, err := limiter.Check(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Equal(t, 1, status.RemainingAttempts)

	// The 5th failure crosses the threshold.
	status, err = limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.Contains(t, status.Message, "Access blocked")

	// And Check now reports the block with minutes remaining.
	status, err = limiter.Check(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.Equal(t, 15, status.MinutesRemaining())
	assert.Contains(t, status.Message, "Try again in 15 minutes")
}

func TestLimiter_PairsAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{})

	for range 5 {
		_, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
		require.NoError(t, err)
	}

	// Same origin, different context: unaffected.
	status, err := limiter.Check(ctx, "1.2.3.4", "ctx-2")
	require.NoError(t, err)
	assert.False(t, status.Blocked)

	// Same context, different origin: unaffected.
	status, err = limiter.Check(ctx, "5.6.7.8", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
}

func TestLimiter_LazyExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{MaxAttempts: 2, BlockDuration: 50 * time.Millisecond})

	for range 2 {
		_, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
		require.NoError(t, err)
	}

	status, err := limiter.Check(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	require.True(t, status.Blocked)

	time.Sleep(60 * time.Millisecond)

	// Expired block reads as open with the full threshold restored; no sweep
	// or timer involved.
	status, err = limiter.Check(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Equal(t, 2, status.RemainingAttempts)
}

func TestLimiter_ExpiredBlockRestartsCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{MaxAttempts: 2, BlockDuration: 50 * time.Millisecond})

	for range 2 {
		_, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
		require.NoError(t, err)
	}
	time.Sleep(60 * time.Millisecond)

	// A failure after expiry counts as the first of a fresh window, not the
	// third of the old one.
	status, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Equal(t, 1, status.RemainingAttempts)
}

func TestLimiter_ResetOnSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{})

	for range 3 {
		_, err := limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
		require.NoError(t, err)
	}

	require.NoError(t, limiter.Reset(ctx, "1.2.3.4", "ctx-1"))

	status, err := limiter.Check(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Equal(t, 5, status.RemainingAttempts)
}

func TestLimiter_EmptyKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter := newLimiter(t, lockout.Config{})

	_, err := limiter.Check(ctx, "", "ctx-1")
	require.ErrorIs(t, err, lockout.ErrEmptyKey)

	_, err = limiter.RecordFailure(ctx, "1.2.3.4", "")
	require.ErrorIs(t, err, lockout.ErrEmptyKey)

	require.ErrorIs(t, limiter.Reset(ctx, "", ""), lockout.ErrEmptyKey)
}

func TestLimiter_SweepExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))
	limiter, err := lockout.NewLimiter(store, lockout.Config{MaxAttempts: 1, BlockDuration: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = limiter.RecordFailure(ctx, "1.2.3.4", "ctx-1")
	require.NoError(t, err)
	_, err = limiter.RecordFailure(ctx, "1.2.3.4", "ctx-2")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	count, err := limiter.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestStatus_MinutesRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		retryIn time.Duration
		want    int
	}{
		{"zero", 0, 0},
		{"sub-minute rounds up", 30 * time.Second, 1},
		{"exact minute", time.Minute, 1},
		{"just over a minute", time.Minute + time.Second, 2},
		{"full window", 15 * time.Minute, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status := lockout.Status{RetryIn: tt.retryIn}
			assert.Equal(t, tt.want, status.MinutesRemaining())
		})
	}
}

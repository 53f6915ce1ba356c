package lockout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxhq/lockbox/pkg/lockout"
)

func TestMemoryStore_GetAbsent(t *testing.T) {
	t.Parallel()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	rec, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts)
	assert.True(t, rec.BlockedUntil.IsZero())
}

func TestMemoryStore_Increment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	rec, err := store.Increment(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.True(t, rec.BlockedUntil.IsZero())

	rec, err = store.Increment(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Attempts)

	rec, err = store.Increment(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Attempts)
	assert.False(t, rec.BlockedUntil.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Minute), rec.BlockedUntil, time.Second)
}

func TestMemoryStore_IncrementRestartsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	_, err := store.Increment(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	rec, err := store.Increment(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.True(t, rec.BlockedUntil.IsZero())
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "k", 1000, time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every failure must be counted exactly once; two racing increments
	// observing the same count would undercount and delay the lockout.
	rec, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, workers, rec.Attempts)
}

func TestMemoryStore_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	_, err := store.Increment(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "k"))

	rec, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts)
}

func TestMemoryStore_SweepExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(0))

	// One blocked-and-expired, one blocked-and-active, one warning.
	_, err := store.Increment(ctx, "expired", 1, 5*time.Millisecond)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "active", 1, time.Hour)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "warning", 5, time.Hour)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	count, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	rec, err := store.Get(ctx, "active")
	require.NoError(t, err)
	assert.False(t, rec.BlockedUntil.IsZero())

	rec, err = store.Get(ctx, "warning")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
}

func TestMemoryStore_Close(t *testing.T) {
	t.Parallel()

	store := lockout.NewMemoryStore(lockout.WithCleanupInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	store.Close()
	store.Close() // repeated close must not panic
}

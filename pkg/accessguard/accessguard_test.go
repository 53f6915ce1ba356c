package accessguard_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxhq/lockbox/pkg/accessguard"
	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
	"github.com/lockboxhq/lockbox/pkg/keymaterial"
	"github.com/lockboxhq/lockbox/pkg/keyproof"
	"github.com/lockboxhq/lockbox/pkg/lockout"
)

const (
	goodSecret = "a1B2c3D4a1B2c3D4a1B2c3D4a1B2c3D4a1B2c3D4a1B2c3D4a1B2c3D4a1B2c3D4"
	badSecret  = "z9Y8x7W6z9Y8x7W6z9Y8x7W6z9Y8x7W6z9Y8x7W6z9Y8x7W6z9Y8x7W6z9Y8x7W6"
)

// tokenStore is an in-memory TokenSource counting lookups, so tests can
// assert the verifier is never consulted while a pair is blocked.
type tokenStore struct {
	tokens map[string]blobcrypt.Blob
	calls  atomic.Int64
}

func (s *tokenStore) VerificationToken(ctx context.Context, contextID string) (blobcrypt.Blob, error) {
	s.calls.Add(1)
	token, ok := s.tokens[contextID]
	if !ok {
		return blobcrypt.Blob{}, accessguard.ErrTokenNotFound
	}
	return token, nil
}

func newGuard(t *testing.T, cfg lockout.Config) (*accessguard.Guard, *tokenStore) {
	t.Helper()

	token, err := keyproof.CreateToken(keymaterial.Derive(goodSecret))
	require.NoError(t, err)

	tokens := &tokenStore{tokens: map[string]blobcrypt.Blob{"ctx-1": token}}
	limiter, err := lockout.NewLimiter(lockout.NewMemoryStore(lockout.WithCleanupInterval(0)), cfg)
	require.NoError(t, err)

	return accessguard.New(limiter, tokens), tokens
}

func TestGuard_Allowed(t *testing.T) {
	t.Parallel()
	guard, _ := newGuard(t, lockout.Config{})

	decision, err := guard.Guard(context.Background(), "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, accessguard.DenyNone, decision.Reason)
	assert.Equal(t, keymaterial.Derive(goodSecret), decision.Key)
}

func TestGuard_InvalidKey(t *testing.T) {
	t.Parallel()
	guard, _ := newGuard(t, lockout.Config{})

	decision, err := guard.Guard(context.Background(), "1.2.3.4", "ctx-1", badSecret)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, accessguard.DenyInvalidKey, decision.Reason)
	assert.Equal(t, 4, decision.Status.RemainingAttempts)
	assert.Contains(t, decision.Status.Message, "4 attempts remaining")
	assert.Nil(t, decision.Key)
}

func TestGuard_NotFound(t *testing.T) {
	t.Parallel()
	guard, _ := newGuard(t, lockout.Config{})

	decision, err := guard.Guard(context.Background(), "1.2.3.4", "no-such-ctx", goodSecret)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, accessguard.DenyNotFound, decision.Reason)
}

func TestGuard_NotFoundDoesNotConsumeAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guard, _ := newGuard(t, lockout.Config{})

	// Probing nonexistent ids must not let an attacker burn a victim's
	// attempt budget or lock out arbitrary ids.
	for range 10 {
		decision, err := guard.Guard(ctx, "1.2.3.4", "no-such-ctx", goodSecret)
		require.NoError(t, err)
		assert.Equal(t, accessguard.DenyNotFound, decision.Reason)
	}

	decision, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestGuard_LockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guard, tokens := newGuard(t, lockout.Config{})

	for i := 1; i <= 4; i++ {
		decision, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", badSecret)
		require.NoError(t, err)
		assert.Equal(t, accessguard.DenyInvalidKey, decision.Reason)
		assert.False(t, decision.Status.Blocked)
	}

	// Fifth failure crosses the threshold; the status carries the block.
	decision, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", badSecret)
	require.NoError(t, err)
	assert.Equal(t, accessguard.DenyInvalidKey, decision.Reason)
	assert.True(t, decision.Status.Blocked)

	// While blocked, even the correct secret is refused and the token is
	// never fetched, so verification cannot be used as a guessing oracle.
	lookupsBefore := tokens.calls.Load()
	decision, err = guard.Guard(ctx, "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	assert.Equal(t, accessguard.DenyBlocked, decision.Reason)
	assert.Positive(t, decision.Status.MinutesRemaining())
	assert.Equal(t, lookupsBefore, tokens.calls.Load())
}

func TestGuard_SuccessResetsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guard, _ := newGuard(t, lockout.Config{})

	for range 3 {
		_, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", badSecret)
		require.NoError(t, err)
	}

	decision, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// The window restarts: the next failure is the first of five again.
	decision, err = guard.Guard(ctx, "1.2.3.4", "ctx-1", badSecret)
	require.NoError(t, err)
	assert.Equal(t, 4, decision.Status.RemainingAttempts)
}

func TestGuard_BlockExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	guard, _ := newGuard(t, lockout.Config{MaxAttempts: 2, BlockDuration: 50 * time.Millisecond})

	for range 2 {
		_, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", badSecret)
		require.NoError(t, err)
	}

	decision, err := guard.Guard(ctx, "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	require.Equal(t, accessguard.DenyBlocked, decision.Reason)

	time.Sleep(60 * time.Millisecond)

	decision, err = guard.Guard(ctx, "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestGuard_TokenSourceFunc(t *testing.T) {
	t.Parallel()

	token, err := keyproof.CreateToken(keymaterial.Derive(goodSecret))
	require.NoError(t, err)

	source := accessguard.TokenSourceFunc(func(ctx context.Context, contextID string) (blobcrypt.Blob, error) {
		if contextID != "ctx-1" {
			return blobcrypt.Blob{}, accessguard.ErrTokenNotFound
		}
		return token, nil
	})

	limiter, err := lockout.NewLimiter(lockout.NewMemoryStore(lockout.WithCleanupInterval(0)), lockout.Config{})
	require.NoError(t, err)
	guard := accessguard.New(limiter, source)

	decision, err := guard.Guard(context.Background(), "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestGuard_EndToEndWithCodec(t *testing.T) {
	t.Parallel()
	guard, _ := newGuard(t, lockout.Config{})

	decision, err := guard.Guard(context.Background(), "1.2.3.4", "ctx-1", goodSecret)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// The allowed decision hands back the key the caller then uses directly.
	blob, err := blobcrypt.Encrypt("hello", decision.Key)
	require.NoError(t, err)
	plaintext, err := blobcrypt.Decrypt(blob, decision.Key)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)
}

func TestStringsSecretShape(t *testing.T) {
	t.Parallel()

	// Guard assumes callers validated the secret; these fixtures must stay
	// valid so the tests exercise real verification, not validation.
	require.Len(t, goodSecret, 64)
	require.Len(t, badSecret, 64)
	require.False(t, strings.ContainsAny(goodSecret, "!@# "))
}

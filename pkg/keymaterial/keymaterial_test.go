package keymaterial_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockboxhq/lockbox/pkg/keymaterial"
)

func TestDerive(t *testing.T) {
	t.Parallel()

	secret := strings.Repeat("a1B2c3D4", 8)

	t.Run("produces 32-byte key", func(t *testing.T) {
		t.Parallel()
		key := keymaterial.Derive(secret)
		require.Len(t, key, keymaterial.KeySize)
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, keymaterial.Derive(secret), keymaterial.Derive(secret))
	})

	t.Run("different secrets yield different keys", func(t *testing.T) {
		t.Parallel()
		other := strings.Repeat("z9Y8x7W6", 8)
		require.NotEqual(t, keymaterial.Derive(secret), keymaterial.Derive(other))
	})
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 10 {
		secret, err := keymaterial.GenerateSecret()
		require.NoError(t, err)
		require.Len(t, secret, keymaterial.SecretLength)
		require.NoError(t, keymaterial.ValidateSecret(secret, keymaterial.DefaultWeak))
		require.False(t, seen[secret], "generated secrets must not repeat")
		seen[secret] = true
	}
}

func TestValidateSecret(t *testing.T) {
	t.Parallel()

	valid := strings.Repeat("a1B2c3D4", 8)

	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{"valid secret", valid, nil},
		{"empty", "", keymaterial.ErrSecretLength},
		{"too short", valid[:63], keymaterial.ErrSecretLength},
		{"too long", valid + "a", keymaterial.ErrSecretLength},
		{"non-alphanumeric", valid[:63] + "!", keymaterial.ErrSecretCharset},
		{"unicode", valid[:62] + "世界", keymaterial.ErrSecretCharset},
		{"all same character", strings.Repeat("a", 64), keymaterial.ErrWeakSecret},
		{"all same digit", strings.Repeat("7", 64), keymaterial.ErrWeakSecret},
		{"numeric run", strings.Repeat("0123456789", 6) + "0123", keymaterial.ErrWeakSecret},
		{"descending numeric run", strings.Repeat("9876543210", 6) + "9876", keymaterial.ErrWeakSecret},
		{"alphabetic run", strings.Repeat("abcdefghij", 6) + "abcd", keymaterial.ErrWeakSecret},
		{"uppercase alphabetic run", strings.Repeat("ABCDEFGHIJ", 6) + "ABCD", keymaterial.ErrWeakSecret},
		{"alphabet wrap", strings.Repeat("abcdefghijklmnopqrstuvwxyz", 2) + "abcdefghijkl", keymaterial.ErrWeakSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := keymaterial.ValidateSecret(tt.secret, keymaterial.DefaultWeak)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateSecret_NilWeakFunc(t *testing.T) {
	t.Parallel()

	// Weak-pattern checking is opt-in; a nil predicate only enforces shape.
	err := keymaterial.ValidateSecret(strings.Repeat("a", 64), nil)
	assert.NoError(t, err)
}

func TestValidateSecret_CustomWeakFunc(t *testing.T) {
	t.Parallel()

	banned := strings.Repeat("a1B2c3D4", 8)
	custom := func(secret string) bool { return secret == banned }

	require.ErrorIs(t, keymaterial.ValidateSecret(banned, custom), keymaterial.ErrWeakSecret)
	require.NoError(t, keymaterial.ValidateSecret(strings.Repeat("z9Y8x7W6", 8), custom))
}

// Package keymaterial turns a user-supplied 64-character secret into the
// 32-byte symmetric key used by the encryption layer.
//
// The secret is treated as high-entropy key material supplied directly by the
// user, not as a password: derivation is a single SHA-256 over the UTF-8 bytes
// of the secret, with no salt and no iteration count. Strengthening a weak
// secret is explicitly out of scope — weak secrets are rejected up front at
// context-creation time via ValidateSecret instead.
//
// # Usage
//
//	import "github.com/lockboxhq/lockbox/pkg/keymaterial"
//
//	if err := keymaterial.ValidateSecret(secret, keymaterial.DefaultWeak); err != nil {
//	    // reject the secret
//	}
//	key := keymaterial.Derive(secret)
//
// Derive is deterministic and pure; the same secret always yields the same
// key, so it is safe to call from any number of goroutines.
//
// # Error Handling
//
// ValidateSecret returns rich errors wrapping the package sentinels
// ErrSecretLength, ErrSecretCharset and ErrWeakSecret. Use errors.Is to match.
package keymaterial

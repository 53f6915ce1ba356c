package keyproof

import (
	"crypto/subtle"

	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
)

// sentinel is the fixed plaintext sealed into every verification token.
const sentinel = "key_valid"

// CreateToken encrypts the sentinel under key, producing the verification
// token stored alongside an encryption context.
func CreateToken(key []byte) (blobcrypt.Blob, error) {
	return blobcrypt.Encrypt(sentinel, key)
}

// Verify reports whether key is the key the token was created under. It
// returns true iff the token decrypts and the recovered plaintext equals the
// sentinel exactly. Decrypt failures are deliberately folded into false.
func Verify(key []byte, token blobcrypt.Blob) bool {
	plaintext, err := blobcrypt.Decrypt(token, key)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(sentinel)) == 1
}

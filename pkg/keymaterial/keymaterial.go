package keymaterial

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

const (
	// KeySize is the size of the derived symmetric key in bytes (AES-256).
	KeySize = 32

	// SecretLength is the required length of a user-supplied secret.
	SecretLength = 64

	// secretAlphabet is the character set used by GenerateSecret and
	// accepted by ValidateSecret.
	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Derive expands a validated secret into a KeySize-byte key by hashing its
// UTF-8 bytes with SHA-256. The function is deterministic and has no failure
// mode; validating the secret is the caller's responsibility.
func Derive(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// GenerateSecret returns a new random SecretLength-character alphanumeric
// secret suitable for use as an encryption-context key.
func GenerateSecret() (string, error) {
	var b strings.Builder
	b.Grow(SecretLength)
	max := big.NewInt(int64(len(secretAlphabet)))
	for range SecretLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		b.WriteByte(secretAlphabet[n.Int64()])
	}
	return b.String(), nil
}

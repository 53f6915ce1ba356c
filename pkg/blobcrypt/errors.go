package blobcrypt

import "errors"

var (
	// ErrInvalidKey indicates the supplied key is not exactly 32 bytes.
	ErrInvalidKey = errors.New("invalid key: must be 32 bytes")

	// ErrInvalidBlob indicates a blob with malformed fields (wrong IV or tag
	// size, undecodable base64) that cannot even be handed to the cipher.
	ErrInvalidBlob = errors.New("invalid ciphertext blob")

	// ErrIntegrity indicates the authentication tag did not verify. This
	// covers tampered ciphertext, a mismatched AAD and a wrong key alike;
	// the cases are intentionally indistinguishable at this layer.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrEncryptionFailed indicates the cipher could not be constructed or
	// an IV could not be generated.
	ErrEncryptionFailed = errors.New("encryption failed")
)

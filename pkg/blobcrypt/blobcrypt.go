package blobcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	// KeySize is the required key size in bytes (AES-256).
	KeySize = 32

	// IVSize is the GCM nonce size in bytes. Fixed at 16 for compatibility
	// with previously written blobs; the standard 12-byte nonce would not
	// decrypt them.
	IVSize = 16

	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16

	// CurrentAAD is the versioned AAD string bound into every new blob.
	CurrentAAD = "encrypted-data-ui-v3"

	// LegacyAAD is the AAD assumed for blobs written before AAD versioning.
	LegacyAAD = "encrypted-data-ui"
)

// Encrypt encrypts plaintext under key with AES-256-GCM. A fresh random IV is
// generated on every call; IV reuse under one key breaks GCM entirely, so the
// IV never leaves this function except inside the returned blob. The current
// versioned AAD is bound into the authentication tag.
func Encrypt(plaintext string, key []byte) (Blob, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Blob{}, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Blob{}, errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), []byte(CurrentAAD))

	// Seal appends the tag to the ciphertext; the blob keeps them apart.
	split := len(sealed) - TagSize
	return Blob{
		IV:         iv,
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
		AAD:        CurrentAAD,
	}, nil
}

// Decrypt reverses Encrypt. Blobs without an AAD are verified against the
// legacy constant. Any tag mismatch — tampered ciphertext, wrong AAD or wrong
// key — fails with ErrIntegrity; the causes are not distinguishable here.
func Decrypt(blob Blob, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	if err := blob.validate(); err != nil {
		return "", err
	}

	aad := blob.AAD
	if aad == "" {
		aad = LegacyAAD
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.Tag...)

	plaintext, err := aead.Open(nil, blob.IV, sealed, []byte(aad))
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead, nil
}

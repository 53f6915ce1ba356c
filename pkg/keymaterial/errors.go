package keymaterial

import "errors"

var (
	// ErrSecretLength indicates the secret is not exactly SecretLength characters.
	ErrSecretLength = errors.New("secret must be exactly 64 characters")

	// ErrSecretCharset indicates the secret contains characters outside [A-Za-z0-9].
	ErrSecretCharset = errors.New("secret must contain only letters and digits")

	// ErrWeakSecret indicates the secret matches a recognized weak pattern.
	ErrWeakSecret = errors.New("secret uses a weak pattern, generate a new one")
)

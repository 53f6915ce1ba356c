// Package keyproof proves knowledge of an encryption key without the key, or
// anything comparable to it, ever being stored.
//
// At context creation a fixed sentinel string is encrypted under the key and
// the resulting blob — the verification token — is persisted next to the
// context. Checking a supplied key later is a single decrypt of that token:
// only the correct key recovers the sentinel. The token is meaningless
// ciphertext to anyone without the key, so this check replaces storing the
// secret for direct comparison.
//
// Verify is the one place in the codebase where a decrypt failure is
// swallowed rather than returned: a wrong key is an expected, non-exceptional
// outcome of verification, and it must surface as false, never as an error.
package keyproof

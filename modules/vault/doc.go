// Package vault is the application feature module: named encryption contexts
// protected by a 64-character secret, and the encrypted text records stored
// under them.
//
// The service composes the core packages — keymaterial, blobcrypt, keyproof,
// lockout and accessguard — over a Repository that persists contexts and
// records. A context stores only its verification token; the secret itself is
// never persisted, so proving knowledge of the key via the token is the only
// verification mechanism the system has.
//
// Every operation that touches ciphertext (store, retrieve, update, rotate,
// verify) runs through the access guard first, which enforces the per-origin
// failure lockout before any key material is used.
package vault

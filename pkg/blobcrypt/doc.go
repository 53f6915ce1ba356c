// Package blobcrypt implements the authenticated encryption scheme used for
// every payload stored by the service.
//
// Payloads are encrypted with AES-256 in GCM mode using a 16-byte random IV
// generated per call and a 16-byte authentication tag. A versioned additional
// authenticated data (AAD) string is bound into the tag so that the scheme
// version travels with every blob; blobs written before AAD versioning carry
// no AAD and are decrypted against a fixed legacy constant.
//
// The unit of storage is Blob, which serializes to the JSON shape
//
//	{"iv": base64, "encrypted": base64, "tag": base64, "aad": base64}
//
// # Error Handling
//
// Decrypt deliberately collapses "wrong key" and "tampered data" into the
// single sentinel ErrIntegrity: distinguishing them would hand an attacker a
// decryption oracle. Whether a key is correct is established separately by
// the keyproof package, never by inspecting decrypt failures. Use errors.Is
// to match ErrIntegrity, ErrInvalidKey and ErrInvalidBlob.
package blobcrypt

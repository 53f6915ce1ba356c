// Package jwt implements HS256 JSON Web Tokens for authenticating API
// callers, plus HTTP middleware that validates the Authorization header and
// places the parsed claims in the request context.
//
// Token issuance lives with the identity provider; this package only needs
// to verify tokens and hand the owner identity (the "sub" claim) to request
// handlers. Signature comparison is constant-time.
package jwt

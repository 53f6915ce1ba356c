// Package accessguard makes the single go/no-go decision for every operation
// that needs an encryption context's key: is this caller, from this origin,
// allowed to use this context right now, and with what outcome.
//
// It coordinates the lockout limiter, the stored verification token and key
// derivation into one sequence:
//
//  1. Ask the limiter whether the (origin, context) pair is blocked. While
//     blocked the verification token is never consulted, so a locked-out
//     caller cannot keep using verification as a guessing oracle.
//  2. Fetch the context's verification token from the injected TokenSource.
//     An unknown or foreign context denies with DenyNotFound.
//  3. Verify the supplied secret against the token. A failure is recorded
//     with the limiter and denied with the remaining-attempts or lockout
//     status; a success resets the limiter and allows, handing back the
//     derived key for the follow-up encrypt or decrypt.
//
// The guard owns no persistent state. All collaborators arrive through the
// constructor, so tests supply fakes directly.
package accessguard

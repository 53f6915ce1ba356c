package accessguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/lockboxhq/lockbox/pkg/blobcrypt"
	"github.com/lockboxhq/lockbox/pkg/keymaterial"
	"github.com/lockboxhq/lockbox/pkg/keyproof"
	"github.com/lockboxhq/lockbox/pkg/lockout"
)

// ErrTokenNotFound is returned by a TokenSource when the context does not
// exist or is not visible to the caller. The guard folds it into a
// DenyNotFound decision.
var ErrTokenNotFound = errors.New("verification token not found")

// TokenSource resolves a context id to its stored verification token. The
// caller scopes the source to the requesting owner, so an id belonging to
// someone else resolves the same way as one that never existed.
type TokenSource interface {
	VerificationToken(ctx context.Context, contextID string) (blobcrypt.Blob, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context, contextID string) (blobcrypt.Blob, error)

func (f TokenSourceFunc) VerificationToken(ctx context.Context, contextID string) (blobcrypt.Blob, error) {
	return f(ctx, contextID)
}

// DenyReason classifies why a Guard call denied access.
type DenyReason int

const (
	DenyNone       DenyReason = iota // allowed
	DenyBlocked                      // lockout window active
	DenyNotFound                     // context absent or not owned
	DenyInvalidKey                   // verification failed
)

// Decision is the outcome of one guarded access attempt. On an allowed
// decision Key holds the derived key for the follow-up codec operation; the
// secret itself goes no further than this package.
type Decision struct {
	Allowed bool
	Key     []byte
	Reason  DenyReason
	Status  lockout.Status
}

// Guard coordinates lockout, token lookup and key verification.
type Guard struct {
	limiter *lockout.Limiter
	tokens  TokenSource
}

// New creates a Guard over the given limiter and token source.
func New(limiter *lockout.Limiter, tokens TokenSource) *Guard {
	return &Guard{limiter: limiter, tokens: tokens}
}

// Guard runs the access decision for one (origin, context, secret) triple.
// An error is returned only for infrastructure failures; every policy outcome
// is expressed through the Decision.
func (g *Guard) Guard(ctx context.Context, origin, contextID, secret string) (Decision, error) {
	status, err := g.limiter.Check(ctx, origin, contextID)
	if err != nil {
		return Decision{}, err
	}
	if status.Blocked {
		return Decision{Reason: DenyBlocked, Status: status}, nil
	}

	token, err := g.tokens.VerificationToken(ctx, contextID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Decision{Reason: DenyNotFound}, nil
		}
		return Decision{}, fmt.Errorf("resolve verification token: %w", err)
	}

	key := keymaterial.Derive(secret)
	if !keyproof.Verify(key, token) {
		status, err := g.limiter.RecordFailure(ctx, origin, contextID)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Reason: DenyInvalidKey, Status: status}, nil
	}

	if err := g.limiter.Reset(ctx, origin, contextID); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, Key: key}, nil
}

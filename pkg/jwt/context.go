package jwt

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{ name string }

var (
	tokenContextKey  = &contextKey{name: "jwt"}
	claimsContextKey = &contextKey{name: "jwt_claims"}
)

// SetToken stores the raw JWT string in the context.
func SetToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken returns the raw JWT string from the context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// SetClaims stores parsed claims in the context.
func SetClaims(ctx context.Context, claims StandardClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetClaims returns parsed claims from the context.
func GetClaims(ctx context.Context) (StandardClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(StandardClaims)
	return claims, ok
}

package auth

import "context"

type contextKey string

const identityContextKey contextKey = "auth:identity"

// WithIdentityContext returns a context carrying the authenticated identity.
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity attached by the session
// middleware. The boolean is false for unauthenticated contexts.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

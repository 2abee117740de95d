package auth

import (
	"context"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
)

type claimsKey struct{}

// WithClaims returns a context carrying verified claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// ContextUser reads the caller from request claims; it is the server-side
// chat.AuthProvider.
type ContextUser struct{}

func (ContextUser) CurrentUserID(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", chat.ErrUnauthenticated
	}
	return claims.UserID, nil
}

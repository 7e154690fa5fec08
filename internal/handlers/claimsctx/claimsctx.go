package claimsctx

import (
	"context"

	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context with verified token claims
func New(ctx context.Context, c *jwtmanager.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// Extract the claims from the context
func FromContext(ctx context.Context) (*jwtmanager.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtmanager.Claims)
	return c, ok && c != nil
}

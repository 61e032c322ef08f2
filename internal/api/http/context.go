package httpapi

import (
	"context"

	"gamerental-backend/internal/security"
)

type contextKey int

const principalKey contextKey = iota

func withPrincipal(ctx context.Context, p *security.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// principalFrom returns the authenticated principal, or nil for anonymous
// requests.
func principalFrom(ctx context.Context) *security.Principal {
	p, _ := ctx.Value(principalKey).(*security.Principal)
	return p
}

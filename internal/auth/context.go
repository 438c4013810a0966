package auth

import (
	"context"

	"github.com/gekina/medichat/internal/domain"
)

type ctxKey struct{}

// ContextWithPrincipal stores the authenticated principal in the context.
func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext extracts the authenticated principal from the context.
func FromContext(ctx context.Context) (domain.Principal, error) {
	p, ok := ctx.Value(ctxKey{}).(domain.Principal)
	if !ok {
		return domain.Principal{}, ErrNoPrincipal
	}
	return p, nil
}

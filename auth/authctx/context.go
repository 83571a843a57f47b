// Package authctx carries the authenticated principal through a request context.
//
//	ctx = authctx.Set(ctx, principal)
//	p, ok := authctx.Get[*auth.Principal](ctx)
package authctx

import "context"

type contextKey struct{}

// Set stores the principal in ctx.
func Set(ctx context.Context, principal any) context.Context {
	return context.WithValue(ctx, contextKey{}, principal)
}

// Get returns the principal stored in ctx if it has type T.
func Get[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(contextKey{}).(T)
	return v, ok
}

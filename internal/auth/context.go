package auth

import (
	"context"

	"itsaportal/internal/identity"
)

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id *identity.Context) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the request's identity context, or nil outside the
// Session middleware.
func FromContext(ctx context.Context) *identity.Context {
	id, _ := ctx.Value(identityKey).(*identity.Context)
	return id
}

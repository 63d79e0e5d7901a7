// Package access holds the per-request identity carrier and the guards that
// protected operations run before doing any work.
package access

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

type identityKey struct{}

// WithIdentity attaches a resolved user to ctx.
func WithIdentity(ctx context.Context, user domain.PublicUser) context.Context {
	return context.WithValue(ctx, identityKey{}, user)
}

// IdentityFrom returns the identity attached to ctx, if any.
func IdentityFrom(ctx context.Context) (domain.PublicUser, bool) {
	user, ok := ctx.Value(identityKey{}).(domain.PublicUser)
	return user, ok
}

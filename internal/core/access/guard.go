package access

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// Guard is a synchronous precondition. A nil return means the caller may
// proceed.
type Guard func(ctx context.Context) error

// RequireAuthenticated fails with domain.ErrUnauthenticated when no identity
// is attached to ctx.
func RequireAuthenticated(ctx context.Context) error {
	if _, ok := IdentityFrom(ctx); !ok {
		return domain.ErrUnauthenticated
	}
	return nil
}

// RequireRole builds a guard admitting only identities whose role is in
// roles. Authentication is checked first, so an anonymous caller always gets
// domain.ErrUnauthenticated and never domain.ErrForbidden.
func RequireRole(roles ...domain.Role) Guard {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(ctx context.Context) error {
		if err := RequireAuthenticated(ctx); err != nil {
			return err
		}
		user, _ := IdentityFrom(ctx)
		if _, ok := allowed[user.Role]; !ok {
			return domain.ErrForbidden
		}
		return nil
	}
}

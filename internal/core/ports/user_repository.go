package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// UserRepository defines the persistence contract for user records. Every
// method takes an explicit Executor so it can run inside or outside a
// transaction.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no record matches.
	FindByUsername(ctx context.Context, ex Executor, username string) (*domain.User, error)
	// Create returns an error matching domain.ErrConflict when the store's
	// uniqueness constraint on username rejects the insert.
	Create(ctx context.Context, ex Executor, user *domain.User) (*domain.User, error)
	List(ctx context.Context, ex Executor, limit int, order domain.SortOrder) ([]*domain.User, error)
	UpdateRole(ctx context.Context, ex Executor, username string, role domain.Role) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, ex Executor, username, digest string) error
	Delete(ctx context.Context, ex Executor, username string) error
}

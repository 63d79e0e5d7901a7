package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// CredentialService is the identity API consumed by the transport layer.
type CredentialService interface {
	Register(ctx context.Context, username, password string) (domain.AuthResult, error)
	Login(ctx context.Context, username, password string) (domain.AuthResult, error)
	ValidateToken(ctx context.Context, token string) (domain.PublicUser, error)
}

// UserAdminService exposes role-protected user management.
type UserAdminService interface {
	ListUsers(ctx context.Context, limit int, order domain.SortOrder) ([]domain.PublicUser, error)
	SetRole(ctx context.Context, username string, role domain.Role) (domain.PublicUser, error)
	DeleteUser(ctx context.Context, username string) error
}

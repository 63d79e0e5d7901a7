package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// maxListLimit caps a single page of ListUsers.
const maxListLimit = 100

var requireAdmin = access.RequireRole(domain.RoleAdmin)

// registrar is the part of CredentialService that BootstrapAdmin needs.
type registrar interface {
	RegisterWithin(ctx context.Context, parent ports.Executor, username, password string) (domain.AuthResult, error)
}

// UserAdminService implements role-protected user management.
type UserAdminService struct {
	users     ports.UserRepository
	tx        ports.TxCoordinator
	registrar registrar
	logger    zerolog.Logger
}

var _ ports.UserAdminService = (*UserAdminService)(nil)

func NewUserAdminService(users ports.UserRepository, tx ports.TxCoordinator, reg registrar, logger zerolog.Logger) *UserAdminService {
	return &UserAdminService{users: users, tx: tx, registrar: reg, logger: logger}
}

// ListUsers returns up to limit users in creation order. A limit outside
// 1..100 is clamped.
func (s *UserAdminService) ListUsers(ctx context.Context, limit int, order domain.SortOrder) ([]domain.PublicUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if order != domain.SortDesc {
		order = domain.SortAsc
	}

	users, err := s.users.List(ctx, s.tx.Ambient(), limit, order)
	if err != nil {
		return nil, s.fail("list users", "", err)
	}

	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// SetRole changes the role of username.
func (s *UserAdminService) SetRole(ctx context.Context, username string, role domain.Role) (domain.PublicUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.PublicUser{}, err
	}
	if !role.Valid() {
		return domain.PublicUser{}, domain.ErrInvalidInput
	}

	var updated *domain.User
	err := s.tx.Run(ctx, nil, func(ctx context.Context, tx ports.Executor) error {
		var err error
		updated, err = s.users.UpdateRole(ctx, tx, username, role)
		return err
	})
	if err != nil {
		return domain.PublicUser{}, s.fail("set role", username, err)
	}

	s.logger.Info().
		Str("username", username).
		Str("role", string(role)).
		Str("by", actor(ctx)).
		Msg("role changed")
	return updated.Public(), nil
}

// DeleteUser removes username. Tokens already issued to it stop validating.
func (s *UserAdminService) DeleteUser(ctx context.Context, username string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	err := s.tx.Run(ctx, nil, func(ctx context.Context, tx ports.Executor) error {
		return s.users.Delete(ctx, tx, username)
	})
	if err != nil {
		return s.fail("delete user", username, err)
	}

	s.logger.Info().Str("username", username).Str("by", actor(ctx)).Msg("user deleted")
	return nil
}

// BootstrapAdmin makes sure username exists with the ADMIN role. It runs
// without a guard and is meant for process start-up only. The account is
// registered in a save-point; if it already exists only that save-point is
// rolled back and the existing record is promoted. The password of an
// existing account is left untouched.
func (s *UserAdminService) BootstrapAdmin(ctx context.Context, username, password string) (domain.PublicUser, error) {
	var admin *domain.User
	err := s.tx.Run(ctx, nil, func(ctx context.Context, tx ports.Executor) error {
		_, err := s.registrar.RegisterWithin(ctx, tx, username, password)
		switch {
		case err == nil:
			s.logger.Info().Str("username", username).Msg("bootstrap admin registered")
		case errors.Is(err, domain.ErrConflict):
			s.logger.Info().Str("username", username).Msg("bootstrap admin already exists")
		default:
			return err
		}

		admin, err = s.users.UpdateRole(ctx, tx, username, domain.RoleAdmin)
		return err
	})
	if err != nil {
		return domain.PublicUser{}, s.fail("bootstrap admin", username, err)
	}
	return admin.Public(), nil
}

func (s *UserAdminService) fail(op, username string, err error) error {
	kind := domain.KindOf(err)
	event := s.logger.Warn()
	if kind == domain.KindInternal {
		event = s.logger.Error()
	}
	event.Err(err).Str("operation", op).Str("username", username).Msg("user admin operation failed")
	return domain.Sanitize(err)
}

func actor(ctx context.Context) string {
	if u, ok := access.IdentityFrom(ctx); ok {
		return u.Username
	}
	return ""
}

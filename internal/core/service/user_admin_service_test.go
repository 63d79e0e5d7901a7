package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
)

func newAdminFixture(t *testing.T) (*fixture, *UserAdminService) {
	t.Helper()
	f := newFixture(t)
	return f, NewUserAdminService(f.repo, f.tx, f.svc, zerolog.Nop())
}

func asRole(role domain.Role) context.Context {
	return access.WithIdentity(context.Background(), domain.PublicUser{Username: "caller", Role: role})
}

func TestUserAdmin_Guards(t *testing.T) {
	_, svc := newAdminFixture(t)

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{name: "anonymous", ctx: context.Background(), want: domain.ErrUnauthenticated},
		{name: "user", ctx: asRole(domain.RoleUser), want: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ListUsers(tt.ctx, 10, domain.SortAsc); !errors.Is(err, tt.want) {
				t.Fatalf("ListUsers: expected %v, got %v", tt.want, err)
			}
			if _, err := svc.SetRole(tt.ctx, "alice", domain.RoleAdmin); !errors.Is(err, tt.want) {
				t.Fatalf("SetRole: expected %v, got %v", tt.want, err)
			}
			if err := svc.DeleteUser(tt.ctx, "alice"); !errors.Is(err, tt.want) {
				t.Fatalf("DeleteUser: expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUserAdmin_ListUsers(t *testing.T) {
	f, svc := newAdminFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := f.svc.Register(ctx, name, "pw"); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	users, err := svc.ListUsers(asRole(domain.RoleAdmin), 2, domain.SortDesc)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].Username != "c" || users[1].Username != "b" {
		t.Fatalf("unexpected page: %+v", users)
	}

	all, err := svc.ListUsers(asRole(domain.RoleAdmin), 0, "")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(all) != 3 || all[0].Username != "a" {
		t.Fatalf("expected all users ascending, got %+v", all)
	}
}

func TestUserAdmin_SetRole(t *testing.T) {
	f, svc := newAdminFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.SetRole(asRole(domain.RoleAdmin), "alice", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %q", updated.Role)
	}

	// The next validation sees the new role without a new token.
	user, err := f.svc.ValidateToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN from store, got %q", user.Role)
	}

	if _, err := svc.SetRole(asRole(domain.RoleAdmin), "alice", "ROOT"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
	if _, err := svc.SetRole(asRole(domain.RoleAdmin), "ghost", domain.RoleUser); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserAdmin_DeleteUser(t *testing.T) {
	f, svc := newAdminFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.DeleteUser(asRole(domain.RoleAdmin), "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.svc.ValidateToken(ctx, res.Token); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := svc.DeleteUser(asRole(domain.RoleAdmin), "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestUserAdmin_BootstrapAdmin_New(t *testing.T) {
	f, svc := newAdminFixture(t)
	ctx := context.Background()

	admin, err := svc.BootstrapAdmin(ctx, "root", "pw")
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	if admin.Username != "root" || admin.Role != domain.RoleAdmin {
		t.Fatalf("unexpected admin: %+v", admin)
	}
	if _, err := f.svc.Login(ctx, "root", "pw"); err != nil {
		t.Fatalf("expected bootstrap admin to log in: %v", err)
	}
}

func TestUserAdmin_BootstrapAdmin_Existing(t *testing.T) {
	f, svc := newAdminFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "root", "first-pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	admin, err := svc.BootstrapAdmin(ctx, "root", "other")
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected promotion to ADMIN, got %q", admin.Role)
	}
	if f.repo.count() != 1 {
		t.Fatalf("expected a single record, got %d", f.repo.count())
	}
	if _, err := f.svc.Login(ctx, "root", "first-pw"); err != nil {
		t.Fatalf("existing password must be kept: %v", err)
	}
}

func TestUserAdmin_BootstrapAdmin_InvalidInput(t *testing.T) {
	f, svc := newAdminFixture(t)

	if _, err := svc.BootstrapAdmin(context.Background(), "root", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.repo.count() != 0 {
		t.Fatalf("expected no records, got %d", f.repo.count())
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
)

type stubCredentialService struct {
	registerFn func(ctx context.Context, username, password string) (domain.AuthResult, error)
	loginFn    func(ctx context.Context, username, password string) (domain.AuthResult, error)
}

func (s *stubCredentialService) Register(ctx context.Context, username, password string) (domain.AuthResult, error) {
	return s.registerFn(ctx, username, password)
}

func (s *stubCredentialService) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubCredentialService) ValidateToken(context.Context, string) (domain.PublicUser, error) {
	return domain.PublicUser{}, domain.ErrInvalidToken
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func withIdentity(req *http.Request, user domain.PublicUser) *http.Request {
	return req.WithContext(access.WithIdentity(req.Context(), user))
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		registerFn: func(ctx context.Context, username, password string) (domain.AuthResult, error) {
			if username != "alice" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return domain.AuthResult{Token: "token123", User: domain.PublicUser{Username: username, Role: domain.RoleUser}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"username":"alice","password":"secret"}`), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["username"] != "alice" || user["role"] != "USER" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["id"]; leaked {
		t.Fatalf("id must not be exposed: %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be exposed: %+v", user)
	}
}

func TestAuthHandler_Register_PropagatesDomainError(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		registerFn: func(context.Context, string, string) (domain.AuthResult, error) {
			return domain.AuthResult{}, domain.ErrConflict
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"username":"bob","password":"pw"}`), httptest.NewRecorder())

	if err := handler.Register(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not-json"},
		{name: "missing password", body: `{"username":"bob"}`},
		{name: "missing username", body: `{"password":"pw"}`},
		{name: "username too long", body: `{"username":"` + strings.Repeat("x", 256) + `","password":"pw"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			stub := &stubCredentialService{
				registerFn: func(context.Context, string, string) (domain.AuthResult, error) {
					t.Fatalf("should not be called")
					return domain.AuthResult{}, nil
				},
			}

			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", tt.body), httptest.NewRecorder())
			err := NewAuthHandler(stub).Register(c)

			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
		})
	}
}

func TestAuthHandler_RejectsAlreadyLoggedIn(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		registerFn: func(context.Context, string, string) (domain.AuthResult, error) {
			t.Fatalf("should not be called")
			return domain.AuthResult{}, nil
		},
		loginFn: func(context.Context, string, string) (domain.AuthResult, error) {
			t.Fatalf("should not be called")
			return domain.AuthResult{}, nil
		},
	}
	handler := NewAuthHandler(stub)
	caller := domain.PublicUser{Username: "alice", Role: domain.RoleUser}

	for name, fn := range map[string]echo.HandlerFunc{"register": handler.Register, "login": handler.Login} {
		t.Run(name, func(t *testing.T) {
			req := withIdentity(jsonRequest(http.MethodPost, "/auth/"+name, `{"username":"alice","password":"pw"}`), caller)
			err := fn(e.NewContext(req, httptest.NewRecorder()))
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if err.Error() != "already logged in" {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		loginFn: func(ctx context.Context, username, password string) (domain.AuthResult, error) {
			if username != "alice" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return domain.AuthResult{Token: "token123", User: domain.PublicUser{Username: "alice", Role: domain.RoleAdmin}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret"}`), rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["role"] != "ADMIN" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		loginFn: func(context.Context, string, string) (domain.AuthResult, error) {
			return domain.AuthResult{}, domain.ErrInvalidCredentials
		},
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`), httptest.NewRecorder())

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubCredentialService{
		loginFn: func(context.Context, string, string) (domain.AuthResult, error) {
			t.Fatalf("should not be called")
			return domain.AuthResult{}, nil
		},
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", "{"), httptest.NewRecorder())

	var he *echo.HTTPError
	if err := NewAuthHandler(stub).Login(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubCredentialService{})

	if err := handler.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), httptest.NewRecorder())); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/auth/me", nil), domain.PublicUser{Username: "alice", Role: domain.RoleUser})
	rec := httptest.NewRecorder()
	if err := handler.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var user domain.PublicUser
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if user.Username != "alice" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
}

package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// TokenValidator resolves a bearer token to the current user record.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.PublicUser, error)
}

// Identity resolves the Authorization bearer token and attaches the user to
// the request context. A missing, malformed or rejected token is logged and
// the request continues unauthenticated; protected routes are expected to
// enforce authentication with RequireAuthenticated or RequireRole.
func Identity(validator TokenValidator, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				log.Debug().Str("path", c.Path()).Msg("ignoring malformed authorization header")
				return next(c)
			}

			ctx := c.Request().Context()
			user, err := validator.ValidateToken(ctx, strings.TrimSpace(token))
			if err != nil {
				log.Info().
					Err(err).
					Str("kind", string(domain.KindOf(err))).
					Str("path", c.Path()).
					Msg("bearer token rejected")
				return next(c)
			}

			c.SetRequest(c.Request().WithContext(access.WithIdentity(ctx, user)))
			return next(c)
		}
	}
}

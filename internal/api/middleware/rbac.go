package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// Guard runs g against the request context and stops the chain with its
// error, leaving status mapping to the HTTP error handler.
func Guard(g access.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := g(c.Request().Context()); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func RequireAuthenticated() echo.MiddlewareFunc {
	return Guard(access.RequireAuthenticated)
}

// RequireRole enforces role-based access control.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return Guard(access.RequireRole(roles...))
}

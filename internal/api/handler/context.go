package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/access"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// errAlreadyLoggedIn rejects register and login calls that already carry a
// valid bearer token.
var errAlreadyLoggedIn = &domain.Error{Kind: domain.KindInvalidInput, Message: "already logged in"}

// identity returns the caller resolved by the Identity middleware, if any.
func identity(c echo.Context) (domain.PublicUser, bool) {
	return access.IdentityFrom(c.Request().Context())
}

// bindAndValidate decodes the request body into req and runs its validate
// tags. Both failures are reported as 400.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

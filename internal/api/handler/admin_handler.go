package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type AdminHandler struct {
	admin ports.UserAdminService
}

func NewAdminHandler(admin ports.UserAdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN USER"`
}

// ListUsers returns users in creation order.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int     false  "Page size (1-100, default 100)"
// @Param        order  query     string  false  "ASC or DESC (default ASC)"
// @Success      200    {array}   domain.PublicUser
// @Failure      400    {object}  errorBody
// @Failure      401    {object}  errorBody
// @Failure      403    {object}  errorBody
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	order := domain.SortOrder(strings.ToUpper(c.QueryParam("order")))
	switch order {
	case "", domain.SortAsc, domain.SortDesc:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "order must be ASC or DESC")
	}

	users, err := h.admin.ListUsers(c.Request().Context(), limit, order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// SetRole changes a user's role.
//
// @Summary      Set user role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string          true  "Username"
// @Param        body      body      setRoleRequest  true  "New role"
// @Success      200       {object}  domain.PublicUser
// @Failure      400       {object}  errorBody
// @Failure      401       {object}  errorBody
// @Failure      403       {object}  errorBody
// @Failure      404       {object}  errorBody
// @Router       /admin/users/{username}/role [put]
func (h *AdminHandler) SetRole(c echo.Context) error {
	var req setRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.admin.SetRole(c.Request().Context(), c.Param("username"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user.
//
// @Summary      Delete user
// @Tags         admin
// @Security     BearerAuth
// @Param        username  path  string  true  "Username"
// @Success      204
// @Failure      401  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /admin/users/{username} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if err := h.admin.DeleteUser(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

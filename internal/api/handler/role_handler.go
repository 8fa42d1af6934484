package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// RoleHandler reads and assigns user roles. Both routes are admin-only.
type RoleHandler struct {
	users ports.UserService
}

func NewRoleHandler(users ports.UserService) *RoleHandler {
	return &RoleHandler{users: users}
}

type roleResponse struct {
	UserID       string        `json:"user_id"`
	Role         domain.Role   `json:"role"`
	AllowedRoles []domain.Role `json:"allowed_roles"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// Get handles GET /roles/:id.
//
// @Summary      Get a user's role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  roleResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /roles/{id} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	id := c.Param("id")
	role, err := h.users.GetRole(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleResponse{UserID: id, Role: role, AllowedRoles: domain.AllowedRoles(role)})
}

// Update handles PATCH /roles/:id.
//
// @Summary      Assign a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  roleResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /roles/{id} [patch]
func (h *RoleHandler) Update(c echo.Context) error {
	var req updateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.users.UpdateRole(c.Request().Context(), c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleResponse{UserID: u.ID, Role: u.Role, AllowedRoles: domain.AllowedRoles(u.Role)})
}

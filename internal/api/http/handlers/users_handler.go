package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UsersHandler exposes admin user management.
type UsersHandler struct {
	users     *service.UserService
	principal auth.PrincipalResolver
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, resolver auth.PrincipalResolver) *UsersHandler {
	return &UsersHandler{users: userService, principal: resolver}
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	principal, err := auth.ResolveRequest(c, h.principal)
	if err != nil {
		return err
	}
	users, err := h.users.ListUsers(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

// SetRole PUT /users/:id.
func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	principal, err := auth.ResolveRequest(c, h.principal)
	if err != nil {
		return err
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.SetRole(c.UserContext(), principal, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

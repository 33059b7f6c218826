package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-service/internal/api/dto"
	"github.com/spec-kit/storefront-service/internal/api/validators"
	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/service"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

// AdminHandler exposes account administration endpoints. Routes are
// restricted to admin and superadmin by the role middleware.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	role := domain.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		return apperrors.NewValidationError("unknown role filter", nil)
	}

	users, err := h.auth.ListUsers(c.Context(), role, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"users": out})
}

// CreateStaff handles POST /admin/users for provisioning supplier and admin
// accounts.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	user, _, _, err := h.auth.CreateStaffAccount(c.Context(), req.FullName, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// RevokeToken handles POST /admin/tokens/revoke: forced invalidation of a
// presented token ahead of its natural expiry.
func (h *AdminHandler) RevokeToken(c *fiber.Ctx) error {
	var req dto.RevokeTokenRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ForceRevoke(c.Context(), req.Token); err != nil {
		if err == auth.ErrInvalidToken {
			return apperrors.NewValidationError("token is not one of ours", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"status": "revoked"})
}

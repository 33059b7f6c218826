package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-service/internal/api/dto"
	"github.com/spec-kit/storefront-service/internal/api/validators"
	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/service"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

// AuthHandler exposes auth and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Register(c.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	return c.Status(http.StatusCreated).JSON(dto.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      dto.NewUserResponse(user),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			return apperrors.NewUnauthorized("Invalid email or password")
		}
		return apperrors.MapError(err)
	}

	return c.JSON(dto.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      dto.NewUserResponse(user),
	})
}

// Logout handles POST /auth/logout. It revokes the presented bearer token so
// every process sharing the revocation store rejects it immediately.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return apperrors.NewUnauthorized("No token provided")
	}
	if err := h.auth.Logout(c.Context(), token); err != nil {
		if err == auth.ErrInvalidToken {
			return apperrors.NewUnauthorized("Invalid or expired token")
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"status": "logged_out"})
}

// Me handles GET /auth/me for the authenticated account.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claim, ok := auth.ClaimFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Authentication required")
	}
	user, err := h.auth.GetUser(c.Context(), claim.SubjectID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Session handles GET /auth/session behind OptionalAuth: it reports the
// session state without ever rejecting, so clients can probe cheaply.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	claim, ok := auth.ClaimFromContext(c)
	if !ok {
		return c.JSON(dto.SessionResponse{Authenticated: false})
	}
	user, err := h.auth.GetUser(c.Context(), claim.SubjectID)
	if err != nil {
		return c.JSON(dto.SessionResponse{Authenticated: false})
	}
	resp := dto.NewUserResponse(user)
	return c.JSON(dto.SessionResponse{Authenticated: true, User: &resp})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claim, ok := auth.ClaimFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.Context(), claim.SubjectID, req.CurrentPassword, req.NewPassword); err != nil {
		if err == service.ErrInvalidCredentials {
			return apperrors.NewUnauthorized("Invalid email or password")
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"status": "password_changed"})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	token, err := h.auth.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		return apperrors.MapError(err)
	}

	// The token would normally leave through an email sender; returning it
	// here keeps the flow testable without one.
	return c.JSON(fiber.Map{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := validators.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return c.JSON(fiber.Map{"status": "password_reset"})
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

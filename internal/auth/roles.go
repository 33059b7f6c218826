package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/observability"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

// RequireRole restricts a route to the given roles. It must run after
// RequireAuth or OptionalAuth in the handler chain; without an identity it
// answers 401, with a mismatched identity 403.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claim, ok := ClaimFromContext(c)
		if !ok {
			observability.AuthRejected("unauthenticated")
			return apperrors.NewUnauthorized("Authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[claim.Role]; !exists {
			observability.AuthRejected("forbidden")
			return apperrors.NewForbidden("Insufficient permissions")
		}
		return c.Next()
	}
}

package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/observability"
	apperrors "github.com/spec-kit/storefront-service/pkg/util"
)

const claimKey = "auth_claim"

// Middleware is the per-request authentication gate. A request is treated
// as authenticated iff the token signature is valid, the token is not
// expired, and the token is not present in the revocation store.
type Middleware struct {
	tokens      *TokenService
	revocations RevocationStore
	logger      *zap.Logger
}

// NewMiddleware constructs the gate.
func NewMiddleware(tokens *TokenService, revocations RevocationStore, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, revocations: revocations, logger: logger}
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// attaches the verified claim to the request context otherwise.
func (m *Middleware) RequireAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		observability.AuthRejected("missing_credential")
		return apperrors.NewUnauthorized("No token provided")
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		observability.AuthRejected("invalid_token")
		return apperrors.NewUnauthorized("Invalid or expired token")
	}

	revoked, err := m.revocations.IsRevoked(c.Context(), token)
	if err != nil {
		// Fail open: a revocation store outage must not lock out all
		// authenticated traffic. Availability over strictness.
		observability.RevocationCheckFailed()
		m.logger.Warn("revocation check failed, continuing",
			zap.String("subject", claims.Subject),
			zap.Error(err))
	} else if revoked {
		observability.AuthRejected("revoked_token")
		return apperrors.NewUnauthorized("Token has been invalidated")
	}

	c.Locals(claimKey, claims.Claim())
	return c.Next()
}

// OptionalAuth runs the same checks as RequireAuth but never rejects: on
// any failure the request simply continues without an identity. Used for
// endpoints that personalize but do not require login.
func (m *Middleware) OptionalAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.Next()
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return c.Next()
	}

	revoked, err := m.revocations.IsRevoked(c.Context(), token)
	if err != nil {
		observability.RevocationCheckFailed()
		m.logger.Warn("revocation check failed, continuing",
			zap.String("subject", claims.Subject),
			zap.Error(err))
	} else if revoked {
		return c.Next()
	}

	c.Locals(claimKey, claims.Claim())
	return c.Next()
}

// ClaimFromContext retrieves the authenticated identity, if any.
func ClaimFromContext(c *fiber.Ctx) (domain.Claim, bool) {
	val := c.Locals(claimKey)
	if val == nil {
		return domain.Claim{}, false
	}
	claim, ok := val.(domain.Claim)
	return claim, ok
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// ErrInvalidToken covers bad signatures, malformed payloads, and expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies signed session tokens. It owns the
// signing secret and the expiry policy; revocation is the caller's concern.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a new service.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Claims describes the JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Claim converts the JWT payload into the domain identity claim.
func (c *Claims) Claim() domain.Claim {
	claim := domain.Claim{
		SubjectID: c.Subject,
		Role:      c.Role,
	}
	if c.IssuedAt != nil {
		claim.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claim.ExpiresAt = c.ExpiresAt.Time
	}
	return claim
}

// Issue builds and signs a token for the subject.
func (ts *TokenService) Issue(subjectID string, role domain.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature integrity and expiry and returns the claims.
func (ts *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims, err := ts.parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAllowExpired validates the signature but tolerates expiry. Logout
// uses it so an already-expired token can still be revoked cleanly.
func (ts *TokenService) VerifyAllowExpired(tokenStr string) (*Claims, error) {
	claims, err := ts.parse(tokenStr)
	if err == nil {
		return claims, nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) && claims != nil {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (ts *TokenService) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ts.secret, nil
	})
	if err != nil {
		// Return parsed claims alongside the error when available so that
		// expired tokens can still be inspected.
		if parsed != nil {
			if claims, ok := parsed.Claims.(*Claims); ok {
				return claims, err
			}
		}
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

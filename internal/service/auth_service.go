package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/config"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/events"
	"github.com/spec-kit/storefront-service/internal/observability"
	"github.com/spec-kit/storefront-service/internal/repository"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService coordinates registration, login, and revocation flows.
type AuthService struct {
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
	tokens      *auth.TokenService
	revocations auth.RevocationStore
	dispatcher  events.Dispatcher
	bcryptCost  int
	resetTTL    time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	RevocationStore   auth.RevocationStore
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.UserRepo,
		resets:      deps.PasswordResetRepo,
		tokens:      auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		revocations: deps.RevocationStore,
		dispatcher:  deps.Dispatcher,
		bcryptCost:  cfg.Auth.BcryptCost,
		resetTTL:    time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new customer account and logs it in.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*domain.User, string, time.Time, error) {
	return s.createAccount(ctx, fullName, email, password, domain.RoleCustomer)
}

// CreateStaffAccount provisions a supplier, admin, or superadmin account.
// Callers gate it behind the admin role check.
func (s *AuthService) CreateStaffAccount(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, string, time.Time, error) {
	if !role.Valid() {
		return nil, "", time.Time{}, errors.New("unknown role")
	}
	return s.createAccount(ctx, fullName, email, password, role)
}

func (s *AuthService) createAccount(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	observability.TokenIssued()
	s.publish(ctx, events.EventUserRegistered, user.ID, user.Role, nil)
	return user, token, exp, nil
}

// Login authenticates an account and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	observability.TokenIssued()
	s.publish(ctx, events.EventUserLoggedIn, user.ID, user.Role, nil)
	return user, token, exp, nil
}

// Logout revokes the presented token so it is rejected from now on, even
// though its signature would still verify. Expired tokens are accepted here
// so a stale client can always log out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.VerifyAllowExpired(token)
	if err != nil {
		return err
	}
	return s.revoke(ctx, token, claims.Claim(), false)
}

// ForceRevoke invalidates an arbitrary token on behalf of an admin.
func (s *AuthService) ForceRevoke(ctx context.Context, token string) error {
	claims, err := s.tokens.VerifyAllowExpired(token)
	if err != nil {
		return err
	}
	return s.revoke(ctx, token, claims.Claim(), true)
}

func (s *AuthService) revoke(ctx context.Context, token string, claim domain.Claim, forced bool) error {
	if err := s.revocations.Revoke(ctx, token, claim.ExpiresAt); err != nil {
		return err
	}
	observability.TokenRevoked()
	s.publish(ctx, events.EventTokenRevoked, claim.SubjectID, claim.Role, events.TokenRevokedPayload{Forced: forced})
	return nil
}

// GetUser loads the account behind an identity claim.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns accounts for the admin screens, optionally filtered by role.
func (s *AuthService) ListUsers(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, error) {
	return s.users.List(ctx, role, limit, offset)
}

// ChangePassword verifies the current password before updating to the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// RequestPasswordReset persists a reset token for the account behind the email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return errors.New("token expired or used")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordReset, user.ID, user.Role, nil)
	return s.resets.MarkUsed(ctx, token.ID)
}

// Tokens exposes the underlying token service for middleware usage.
func (s *AuthService) Tokens() *auth.TokenService {
	return s.tokens
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, role domain.Role, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Role:      role,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

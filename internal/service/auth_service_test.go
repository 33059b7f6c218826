package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/config"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/events"
	"github.com/spec-kit/storefront-service/internal/repository"
	"github.com/spec-kit/storefront-service/internal/service"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, role domain.Role, _, _ int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if role == "" || user.Role == role {
			out = append(out, *user)
		}
	}
	return out, nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.ID == id {
			token.UsedAt = &now
		}
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			TokenTTLHours:           1,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
}

func newTestService() (*service.AuthService, *fakeUserRepo, *auth.MemoryRevocationStore) {
	users := newFakeUserRepo()
	revocations := auth.NewMemoryRevocationStore()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, zap.NewNop())
	audit.RegisterHandlers()

	svc := service.NewAuthService(testConfig(), service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newFakeResetRepo(),
		RevocationStore:   revocations,
		Dispatcher:        dispatcher,
	})
	return svc, users, revocations
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	user, token, exp, err := svc.Register(ctx, "Jane Shopper", "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	// Duplicate email rejected.
	_, _, _, err = svc.Register(ctx, "Jane Again", "jane@example.com", "password123")
	assert.Error(t, err)

	loggedIn, loginToken, _, err := svc.Login(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.Tokens().Verify(loginToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, _, _, err := svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, _, err = svc.Register(ctx, "Jane", "jane@example.com", "password123")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _, revocations := newTestService()

	_, token, _, err := svc.Register(ctx, "Jane", "jane@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	revoked, err := revocations.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	// The signature itself still verifies; rejection is the middleware's job.
	_, err = svc.Tokens().Verify(token)
	assert.NoError(t, err)
}

func TestForceRevoke(t *testing.T) {
	ctx := context.Background()
	svc, _, revocations := newTestService()

	_, token, _, err := svc.Register(ctx, "Jane", "jane@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.ForceRevoke(ctx, token))

	revoked, err := revocations.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Error(t, svc.ForceRevoke(ctx, "not-one-of-ours"))
}

func TestCreateStaffAccountValidatesRole(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	user, _, _, err := svc.CreateStaffAccount(ctx, "Sam Supplier", "sam@example.com", "password123", domain.RoleSupplier)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupplier, user.Role)

	_, _, _, err = svc.CreateStaffAccount(ctx, "Bad", "bad@example.com", "password123", domain.Role("owner"))
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "old-password")
	require.NoError(t, err)

	require.Error(t, svc.ChangePassword(ctx, "missing-id", "old-password", "new-password"))

	account, _, _, err := svc.Login(ctx, "jane@example.com", "old-password")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, account.ID, "wrong", "new-password"), service.ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, account.ID, "old-password", "new-password"))

	_, _, _, err = svc.Login(ctx, "jane@example.com", "new-password")
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "old-password")
	require.NoError(t, err)

	reset, err := svc.RequestPasswordReset(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, reset.Token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, reset.Token, "new-password"))

	_, _, _, err = svc.Login(ctx, "jane@example.com", "new-password")
	assert.NoError(t, err)

	// The reset token is single-use.
	assert.Error(t, svc.ConfirmPasswordReset(ctx, reset.Token, "another-password"))
}

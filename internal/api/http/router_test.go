package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront-service/internal/api/http"
	"github.com/spec-kit/storefront-service/internal/api/http/handlers"
	"github.com/spec-kit/storefront-service/internal/auth"
	"github.com/spec-kit/storefront-service/internal/config"
	"github.com/spec-kit/storefront-service/internal/domain"
	"github.com/spec-kit/storefront-service/internal/persistence"
	"github.com/spec-kit/storefront-service/internal/repository"
	"github.com/spec-kit/storefront-service/internal/service"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
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

func (r *memUserRepo) List(_ context.Context, role domain.Role, _, _ int) ([]domain.User, error) {
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

type memResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *memResetRepo) MarkUsed(_ context.Context, id string) error {
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

type serverFixture struct {
	app   *fiber.App
	svc   *service.AuthService
	users *memUserRepo
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "storefront-service", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			TokenTTLHours:           1,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}

	users := newMemUserRepo()
	revocations := auth.NewMemoryRevocationStore()
	svc := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newMemResetRepo(),
		RevocationStore:   revocations,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(svc),
		Admin:          handlers.NewAdminHandler(svc),
		AuthMiddleware: auth.NewMiddleware(svc.Tokens(), revocations, zap.NewNop()),
	})
	return &serverFixture{app: app, svc: svc, users: users}
}

func (f *serverFixture) request(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func (f *serverFixture) registerAndLogin(t *testing.T, fullName, email, password string) string {
	t.Helper()
	status, body := f.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"full_name": fullName,
		"email":     email,
		"password":  password,
	})
	require.Equal(t, http.StatusCreated, status, "register: %v", body)
	return body["token"].(string)
}

func TestLoginContract(t *testing.T) {
	f := newServerFixture(t)
	f.registerAndLogin(t, "Jane Shopper", "jane@example.com", "password123")

	status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, user["userId"])
	assert.Equal(t, "customer", user["role"])
	assert.Equal(t, "Jane Shopper", user["full_name"])
	assert.Equal(t, "jane@example.com", user["email"])
}

func TestLoginFailureIsFlatError(t *testing.T) {
	f := newServerFixture(t)

	status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["error"])
}

func TestLoginValidatesBody(t *testing.T) {
	f := newServerFixture(t)

	status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed", body["error"])
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newServerFixture(t)
	token := f.registerAndLogin(t, "Jane", "jane@example.com", "password123")

	status, _ := f.request(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = f.request(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := f.request(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been invalidated", body["error"])
}

func TestSessionProbeNeverRejects(t *testing.T) {
	f := newServerFixture(t)

	status, body := f.request(t, http.MethodGet, "/auth/session", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	status, body = f.request(t, http.MethodGet, "/auth/session", "garbage-token", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	token := f.registerAndLogin(t, "Jane", "jane@example.com", "password123")
	status, body = f.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["authenticated"])
}

func TestAdminRoutesAreRoleRestricted(t *testing.T) {
	f := newServerFixture(t)

	// Unauthenticated: 401, not 403.
	status, body := f.request(t, http.MethodGet, "/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", body["error"])

	customerToken := f.registerAndLogin(t, "Jane", "jane@example.com", "password123")
	status, body = f.request(t, http.MethodGet, "/admin/users", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Insufficient permissions", body["error"])
}

func TestAdminCanProvisionAndListAccounts(t *testing.T) {
	f := newServerFixture(t)

	// Seed an admin directly; provisioning the first admin is an ops task.
	_, adminToken, _, err := f.svc.CreateStaffAccount(context.Background(), "Root Admin", "admin@example.com", "password123", domain.RoleAdmin)
	require.NoError(t, err)

	status, body := f.request(t, http.MethodPost, "/admin/users", adminToken, map[string]string{
		"full_name": "Sam Supplier",
		"email":     "sam@example.com",
		"password":  "password123",
		"role":      "supplier",
	})
	require.Equal(t, http.StatusCreated, status, "create staff: %v", body)
	assert.Equal(t, "supplier", body["role"])

	status, body = f.request(t, http.MethodGet, "/admin/users?role=supplier", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
}

func TestAdminForceRevoke(t *testing.T) {
	f := newServerFixture(t)

	_, adminToken, _, err := f.svc.CreateStaffAccount(context.Background(), "Root Admin", "admin@example.com", "password123", domain.RoleSuperAdmin)
	require.NoError(t, err)

	customerToken := f.registerAndLogin(t, "Jane", "jane@example.com", "password123")

	status, _ := f.request(t, http.MethodPost, "/admin/tokens/revoke", adminToken, map[string]string{
		"token": customerToken,
	})
	require.Equal(t, http.StatusOK, status)

	status, body := f.request(t, http.MethodGet, "/auth/me", customerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been invalidated", body["error"])
}

func TestHealthLive(t *testing.T) {
	f := newServerFixture(t)

	status, body := f.request(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

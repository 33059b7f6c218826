package client

import (
	"github.com/spec-kit/storefront-service/internal/domain"
)

// Default redirect targets.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
)

// RouteRule declares a protected view and the roles allowed to open it.
// An empty Roles set means any authenticated identity may enter.
type RouteRule struct {
	Path  string
	Roles []domain.Role
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed    bool
	RedirectTo string
	// ReturnTo carries the originally requested path when redirecting to
	// login, so the flow can resume after authentication.
	ReturnTo string
}

// RouteGuard gates client-side navigation using the session store. It is a
// UX convenience only: the server middleware re-checks every request.
type RouteGuard struct {
	store     *SessionStore
	rules     map[string]RouteRule
	loginPath string
	homePath  string
}

// NewRouteGuard builds a guard over the given rules.
func NewRouteGuard(store *SessionStore, rules []RouteRule) *RouteGuard {
	byPath := make(map[string]RouteRule, len(rules))
	for _, rule := range rules {
		byPath[rule.Path] = rule
	}
	return &RouteGuard{
		store:     store,
		rules:     byPath,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
	}
}

// Check evaluates navigation to path. Paths without a declared rule are
// always allowed.
func (g *RouteGuard) Check(path string) Decision {
	rule, protected := g.rules[path]
	if !protected {
		return Decision{Allowed: true}
	}

	user, ok := g.store.CurrentUser()
	if !ok {
		return Decision{RedirectTo: g.loginPath, ReturnTo: path}
	}

	if len(rule.Roles) == 0 {
		return Decision{Allowed: true}
	}
	for _, role := range rule.Roles {
		if user.Role == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{RedirectTo: g.homePath}
}

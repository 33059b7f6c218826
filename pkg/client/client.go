package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is the decoded flat {"error":"<message>"} body.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the storefront API. Token attachment and the 401 policy
// live in the transport, so call sites never handle either themselves.
type Client struct {
	baseURL string
	http    *http.Client
	store   *SessionStore
}

// Option customizes the client.
type Option func(*options)

type options struct {
	timeout          time.Duration
	onSessionInvalid func()
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithSessionInvalidHandler installs the hook run after any 401 response
// has cleared the session, typically a redirect to the login view.
func WithSessionInvalidHandler(fn func()) Option {
	return func(o *options) { o.onSessionInvalid = fn }
}

// New builds a client over the session store.
func New(baseURL string, store *SessionStore, opts ...Option) *Client {
	o := options{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &AuthTransport{Store: store}
	transport.OnUnauthorized = func() {
		// Central session-invalid policy: logout once, then signal.
		_ = store.Logout()
		if o.onSessionInvalid != nil {
			o.onSessionInvalid()
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: o.timeout},
		store:   store,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Identity  `json:"user"`
}

// Login authenticates and persists the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return Identity{}, err
	}
	if err := c.store.SetSession(resp.User, resp.Token); err != nil {
		return Identity{}, err
	}
	return resp.User, nil
}

// Logout asks the server to revoke the current token, then clears the
// local session regardless of the server outcome.
func (c *Client) Logout(ctx context.Context) error {
	if _, ok := c.store.Token(); !ok {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if clearErr := c.store.Logout(); clearErr != nil {
		return clearErr
	}
	return err
}

// Me fetches the authenticated identity from the server.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var user Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return Identity{}, err
	}
	return user, nil
}

// Session returns the session store for guard construction and UI
// subscriptions.
func (c *Client) Session() *SessionStore {
	return c.store
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

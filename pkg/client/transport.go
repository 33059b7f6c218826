package client

import (
	"net/http"
)

// AuthTransport attaches the stored token as a bearer credential on every
// outbound call. It performs no retry or refresh; expired or revoked tokens
// simply come back as 401, which the configured hook handles centrally.
type AuthTransport struct {
	// Base is the underlying transport; http.DefaultTransport when nil.
	Base http.RoundTripper
	// Store supplies the current token.
	Store *SessionStore
	// OnUnauthorized, when set, is invoked once for every 401 response.
	// The default client policy clears the session and signals a redirect
	// to login.
	OnUnauthorized func()
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Store != nil {
		if token, ok := t.Store.Token(); ok {
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			req = clone
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}
	return resp, nil
}

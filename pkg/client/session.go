// Package client is the Go counterpart of the storefront's browser runtime:
// it keeps the session (identity + token) in durable storage, guards
// navigation by role, and attaches the bearer token to outbound calls.
package client

import (
	"errors"
	"sync"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// Identity is the user shape returned by the login endpoint.
type Identity struct {
	UserID   string      `json:"userId"`
	Role     domain.Role `json:"role"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
}

// Session couples an identity with its backing token. The two are written
// through a single path so one never exists without the other.
type Session struct {
	User  Identity `json:"user"`
	Token string   `json:"token"`
}

// Authenticated reports whether the session holds a logged-in identity.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User.UserID != ""
}

// SessionStore is the single global session cell for a running client:
// one writer (login/logout), many readers (guard, transport, UI).
type SessionStore struct {
	mu          sync.RWMutex
	storage     Storage
	session     Session
	subscribers map[int]chan Session
	nextSubID   int
}

// NewSessionStore builds a store on top of the given storage backend and
// restores any session that survived a previous run.
func NewSessionStore(storage Storage) (*SessionStore, error) {
	store := &SessionStore{
		storage:     storage,
		subscribers: make(map[int]chan Session),
	}
	session, ok, err := storage.Load()
	if err != nil {
		return nil, err
	}
	if ok && session.Authenticated() {
		store.session = session
	}
	return store, nil
}

// SetSession persists the identity and its token and notifies subscribers
// immediately, without requiring navigation or reload.
func (s *SessionStore) SetSession(user Identity, token string) error {
	if token == "" || user.UserID == "" {
		return errors.New("session requires both an identity and a token")
	}
	session := Session{User: user, Token: token}

	s.mu.Lock()
	if err := s.storage.Save(session); err != nil {
		s.mu.Unlock()
		return err
	}
	s.session = session
	s.mu.Unlock()

	s.notify(session)
	return nil
}

// Current returns the session snapshot.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// CurrentUser is the synchronous identity read used by the route guard.
func (s *SessionStore) CurrentUser() (Identity, bool) {
	session := s.Current()
	return session.User, session.Authenticated()
}

// Token returns the raw token, if any.
func (s *SessionStore) Token() (string, bool) {
	session := s.Current()
	return session.Token, session.Authenticated()
}

// Logout clears the persisted session. Subsequent guard checks and
// outbound calls see the unauthenticated state immediately.
func (s *SessionStore) Logout() error {
	s.mu.Lock()
	if err := s.storage.Clear(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.session = Session{}
	s.mu.Unlock()

	s.notify(Session{})
	return nil
}

// Subscribe returns a stream carrying every session change, starting with
// the current state. The cancel func releases the subscription.
func (s *SessionStore) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.session
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// notify pushes the latest session to every subscriber, replacing any
// unconsumed previous value so slow readers only ever see fresh state.
func (s *SessionStore) notify(session Session) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- session:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- session
		}
	}
}

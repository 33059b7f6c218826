package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "auth:revoked:"

// RevocationStore is a persisted set of invalidated tokens, consulted on
// every verification. Lookup errors are returned to the caller; the
// middleware owns the fail-open decision so the policy lives in one place.
type RevocationStore interface {
	// Revoke idempotently records a token as invalid, effective immediately
	// for every process sharing the store.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked is a point-in-time lookup against persisted records.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisRevocationStore keeps revocation records in Redis. Each record is
// keyed by the token digest and expires together with the token itself,
// so the set garbage-collects without a sweeper.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore wraps an existing client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; verification rejects it regardless.
		return nil
	}
	return s.client.Set(ctx, revocationKey(token), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := s.client.Get(ctx, revocationKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revocationKeyPrefix + hex.EncodeToString(sum[:])
}

// MemoryRevocationStore is an in-process store for tests and redis-less
// development runs. Records are dropped lazily once the token expires.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore builds an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.revoked[token]; !exists {
		s.revoked[token] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	expiresAt, ok := s.revoked[token]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		s.mu.Lock()
		delete(s.revoked, token)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

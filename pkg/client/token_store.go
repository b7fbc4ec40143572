package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore is the caller's local credential store.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Token returns the stored token, or "" when none is set.
func (s *MemoryTokenStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// SetToken replaces the stored token.
func (s *MemoryTokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear removes the stored token.
func (s *MemoryTokenStore) Clear(context.Context) error {
	return s.SetToken(context.Background(), "")
}

// RedisTokenStore keeps the token under a single Redis key so several
// processes can share one session.
type RedisTokenStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore returns a store writing to key. A positive ttl expires
// the stored token; match it to the token lifetime.
func NewRedisTokenStore(client redis.Cmdable, key string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key, ttl: ttl}
}

// Token reads the key. A missing or expired key yields "".
func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// SetToken writes the key with the store ttl. An empty token clears it.
func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	return s.client.Set(ctx, s.key, token, s.ttl).Err()
}

// Clear deletes the key.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

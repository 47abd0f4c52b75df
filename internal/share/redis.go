package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "share:token:"

// RedisStore persists tokens in Redis with a TTL matching the token expiry,
// so expired tokens are evicted by Redis itself. Records are CBOR-encoded.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed token store.
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// Put stores the token with a TTL derived from its expiry.
// Tokens already past expiry are not written.
func (s *RedisStore) Put(ctx context.Context, token Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := cbor.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode share token: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+token.Token, payload, ttl).Err(); err != nil {
		s.logger.Error("failed to store share token", "error", err)
		return fmt.Errorf("store share token: %w", err)
	}
	return nil
}

// Get returns the token record, or ErrTokenNotFound when absent.
// Redis TTL eviction makes expiry and absence indistinguishable here.
func (s *RedisStore) Get(ctx context.Context, value string) (Token, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		s.logger.Error("failed to load share token", "error", err)
		return Token{}, fmt.Errorf("load share token: %w", err)
	}

	var token Token
	if err := cbor.Unmarshal(payload, &token); err != nil {
		s.logger.Error("failed to decode share token", "error", err)
		return Token{}, fmt.Errorf("decode share token: %w", err)
	}
	return token, nil
}

// Delete removes the token. Deleting an absent token is not an error.
func (s *RedisStore) Delete(ctx context.Context, value string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+value).Err(); err != nil {
		return fmt.Errorf("delete share token: %w", err)
	}
	return nil
}

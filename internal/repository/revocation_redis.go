package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisRevocationStore keeps the denylist as Redis keys whose TTL equals
// the remaining lifetime of the revoked token, so garbage collection
// comes for free.
type RedisRevocationStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisRevocationStore(client *redis.Client, logger *logrus.Logger) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		logger: logger,
	}
}

func revokedKey(token string) string {
	return fmt.Sprintf("revoked_token:%s", token)
}

// Revoke is idempotent: overwriting an existing entry is a no-op from the
// caller's point of view. A token already past its expiry needs no entry
// at all, since the TTL check rejects it independently.
func (s *RedisRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, revokedKey(token), "1", ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store revoked token")
		return fmt.Errorf("failed to store revoked token: %w", err)
	}

	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return exists > 0, nil
}

package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces revocation entries, generalizing the
// gourdiantoken library's "revoked:access:"/"revoked:refresh:" convention to
// a single token-id space since this Vault's Claims carry Type rather than
// using separate key families per type.
const redisKeyPrefix = "vault:revoked:"

// minRedisTTL guards against a zero or negative TTL reaching SET EX, which
// Redis rejects.
const minRedisTTL = 100 * time.Millisecond

// redisRevocationStore is the production RevocationStore backend: a Redis
// key per token-id with a TTL equal to the remaining retention window, so
// expired revocations are reclaimed by Redis itself rather than needing a
// janitor.
type redisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) (RevocationStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &redisRevocationStore{client: client}, nil
}

func (s *redisRevocationStore) Revoke(ctx context.Context, tokenID string, retainUntil time.Time) error {
	ttl := time.Until(retainUntil)
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}
	return s.client.Set(ctx, redisKeyPrefix+tokenID, retainUntil.Unix(), ttl).Err()
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

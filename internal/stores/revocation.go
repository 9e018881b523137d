package stores

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the bearer-token denylist. Entries carry a TTL equal to
// the remaining lifetime of the token they reject, so the denylist purges
// itself exactly when the token would have expired anyway.
type RevocationStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRevocationStore creates a RevocationStore writing under the given key
// prefix. The user and admin authorities take separate prefixes.
func NewRevocationStore(redisClient redis.UniversalClient, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "rvk"
	}
	return &RevocationStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RevocationStore) key(tokenHash [32]byte) string {
	return s.prefix + ":" + hex.EncodeToString(tokenHash[:])
}

// Revoke inserts the token digest with the given TTL. A non-positive TTL
// means the token is already past its expiry and nothing needs to be stored.
func (s *RevocationStore) Revoke(ctx context.Context, tokenHash [32]byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token digest is on the denylist.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenHash [32]byte) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

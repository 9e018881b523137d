package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPayloadNotFound is returned when no pending payload exists for the
// correlation id.
var ErrPayloadNotFound = errors.New("pending payload not found")

// PayloadStore holds pending-registration snapshots keyed by correlation id
// while the signup OTP round-trip is in flight.
type PayloadStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewPayloadStore creates a PayloadStore writing under the given key prefix.
func NewPayloadStore(redisClient redis.UniversalClient, prefix string) *PayloadStore {
	if prefix == "" {
		prefix = "reg"
	}
	return &PayloadStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *PayloadStore) key(id string) string {
	return s.prefix + ":" + id
}

// Save writes the encoded payload with the given TTL. Resend re-saves under
// the same id, refreshing the TTL alongside the fresh code.
func (s *PayloadStore) Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the encoded payload, or ErrPayloadNotFound once it expired or
// was deleted.
func (s *PayloadStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPayloadNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return data, nil
}

// Delete removes the payload. Absent keys are not an error.
func (s *PayloadStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

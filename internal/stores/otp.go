package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCodeNotFound is returned when no code exists for the key: expired,
	// never issued, or already consumed.
	ErrCodeNotFound = errors.New("otp code not found")
	// ErrCodeMismatch is returned when the submitted code differs from the
	// stored one; the stored code is left in place.
	ErrCodeMismatch = errors.New("otp code mismatch")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("otp redis unavailable")
)

// OTPStore holds issued one-time codes keyed by flow purpose plus either a
// correlation id or a normalized contact identifier.
type OTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewOTPStore creates an OTPStore writing under the given key prefix.
func NewOTPStore(redisClient redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &OTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *OTPStore) key(purpose, id string) string {
	return s.prefix + ":" + purpose + ":" + id
}

// Save writes a code with the given TTL, overwriting any previous code for
// the same purpose and id.
func (s *OTPStore) Save(ctx context.Context, purpose, id, code string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(purpose, id), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes a stored code. Deleting an absent key is not an error;
// issue-rollback relies on that.
func (s *OTPStore) Delete(ctx context.Context, purpose, id string) error {
	if err := s.redis.Del(ctx, s.key(purpose, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Consume matches submitted against the stored code and deletes the key in
// the same transaction on success, making every code single-use. A mismatch
// leaves the code in place and returns ErrCodeMismatch. When two consumes
// race, the loser's read observes the deleted key and fails with
// ErrCodeNotFound; the WATCH transaction is the only linearizing mechanism.
func (s *OTPStore) Consume(ctx context.Context, purpose, id, submitted string) error {
	const maxRetries = 4
	key := s.key(purpose, id)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
				return ErrCodeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrCodeNotFound
			case errors.Is(err, ErrCodeMismatch):
				return ErrCodeMismatch
			default:
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrCodeNotFound
}

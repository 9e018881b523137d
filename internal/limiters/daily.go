package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrDailyLimit is returned when the post-increment count exceeds the
	// daily cap.
	ErrDailyLimit = errors.New("daily send limit reached")
	// ErrCooldown is returned while a resend cooldown marker is present.
	ErrCooldown = errors.New("resend cooldown active")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("limiter redis unavailable")
)

// DailyConfig configures the per-contact daily send counter.
type DailyConfig struct {
	MaxSends int
	// Location fixes where the calendar day ends; the counter expires at
	// the next local midnight.
	Location *time.Location
}

// DailyLimiter caps OTP sends per contact identifier per calendar day.
type DailyLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config DailyConfig
}

// NewDailyLimiter creates a DailyLimiter writing under the given key prefix.
func NewDailyLimiter(redisClient redis.UniversalClient, prefix string, cfg DailyConfig) *DailyLimiter {
	if prefix == "" {
		prefix = "odc"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &DailyLimiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (l *DailyLimiter) key(contact string) string {
	return l.prefix + ":" + contact
}

// Allow atomically increments the contact's counter and rejects the send
// once the post-increment count exceeds the cap. The expiry is set to the
// time remaining until local midnight only on the first increment of the
// day, so the window always closes at the day boundary regardless of when
// the first send happened.
func (l *DailyLimiter) Allow(ctx context.Context, contact string, now time.Time) error {
	key := l.key(contact)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, untilMidnight(now, l.config.Location)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxSends) {
		return ErrDailyLimit
	}

	return nil
}

func untilMidnight(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	d := midnight.Sub(local)
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Cooldown is the resend throttle: a marker key whose presence rejects the
// resend until it expires.
type Cooldown struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCooldown creates a Cooldown with the given marker TTL.
func NewCooldown(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *Cooldown {
	if prefix == "" {
		prefix = "cool"
	}
	return &Cooldown{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Mark attempts to place the marker. ErrCooldown when one is already
// present.
func (c *Cooldown) Mark(ctx context.Context, id string) error {
	ok, err := c.redis.SetNX(ctx, c.prefix+":"+id, "1", c.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrCooldown
	}
	return nil
}

// Clear removes the marker so the next Mark succeeds immediately.
// Issue-rollback after a failed delivery relies on this; clearing an
// absent marker is not an error.
func (c *Cooldown) Clear(ctx context.Context, id string) error {
	if err := c.redis.Del(ctx, c.prefix+":"+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

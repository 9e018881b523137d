package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDailyLimiterCapsSends(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := NewDailyLimiter(rdb, "t:odc", DailyConfig{MaxSends: 3, Location: time.UTC})
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, "alice@example.com", now); err != nil {
			t.Fatalf("send %d rejected: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, "alice@example.com", now); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("fourth send: got %v, want ErrDailyLimit", err)
	}

	// Contacts are counted independently.
	if err := limiter.Allow(ctx, "bob@example.com", now); err != nil {
		t.Fatalf("other contact rejected: %v", err)
	}
}

func TestDailyLimiterResetsAtMidnight(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewDailyLimiter(rdb, "t:odc", DailyConfig{MaxSends: 1, Location: time.UTC})
	ctx := context.Background()

	// 23:00; the counter expires in one hour.
	now := time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)
	if err := limiter.Allow(ctx, "alice@example.com", now); err != nil {
		t.Fatalf("first send rejected: %v", err)
	}
	if err := limiter.Allow(ctx, "alice@example.com", now); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("got %v, want ErrDailyLimit", err)
	}

	mr.FastForward(time.Hour + time.Second)
	if err := limiter.Allow(ctx, "alice@example.com", now.Add(time.Hour+time.Second)); err != nil {
		t.Fatalf("send after midnight rejected: %v", err)
	}
}

func TestUntilMidnight(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 10, 22, 0, 0, 0, loc)
	if d := untilMidnight(now, loc); d != 2*time.Hour {
		t.Fatalf("got %v, want 2h", d)
	}
	// Exactly at midnight the window spans the whole next day.
	midnight := time.Date(2024, 5, 11, 0, 0, 0, 0, loc)
	if d := untilMidnight(midnight, loc); d != 24*time.Hour {
		t.Fatalf("got %v, want 24h", d)
	}
}

func TestCooldownThrottlesResend(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cooldown := NewCooldown(rdb, "t:cool", 30*time.Second)
	ctx := context.Background()

	if err := cooldown.Mark(ctx, "corr-1"); err != nil {
		t.Fatalf("first Mark failed: %v", err)
	}
	if err := cooldown.Mark(ctx, "corr-1"); !errors.Is(err, ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}

	// Other ids are untouched.
	if err := cooldown.Mark(ctx, "corr-2"); err != nil {
		t.Fatalf("Mark for other id failed: %v", err)
	}

	mr.FastForward(31 * time.Second)
	if err := cooldown.Mark(ctx, "corr-1"); err != nil {
		t.Fatalf("Mark after cooldown failed: %v", err)
	}
}

func TestCooldownClearReopensImmediately(t *testing.T) {
	_, rdb := newTestRedis(t)
	cooldown := NewCooldown(rdb, "t:cool", 30*time.Second)
	ctx := context.Background()

	if err := cooldown.Mark(ctx, "corr-1"); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := cooldown.Clear(ctx, "corr-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := cooldown.Mark(ctx, "corr-1"); err != nil {
		t.Fatalf("Mark after Clear failed: %v", err)
	}

	// Clearing an absent marker is a no-op.
	if err := cooldown.Clear(ctx, "corr-2"); err != nil {
		t.Fatalf("Clear of absent marker failed: %v", err)
	}
}

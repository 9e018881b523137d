package stores

import (
	"context"
	"errors"
	"sync"
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

func TestOTPConsumeIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "t:otp")
	ctx := context.Background()

	if err := store.Save(ctx, "login", "alice@example.com", "482913", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Consume(ctx, "login", "alice@example.com", "482913"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := store.Consume(ctx, "login", "alice@example.com", "482913"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("second Consume: got %v, want ErrCodeNotFound", err)
	}
}

func TestOTPConsumeMismatchLeavesCode(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "t:otp")
	ctx := context.Background()

	if err := store.Save(ctx, "login", "alice@example.com", "482913", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Consume(ctx, "login", "alice@example.com", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("got %v, want ErrCodeMismatch", err)
	}
	// The stored code survives a miss.
	if err := store.Consume(ctx, "login", "alice@example.com", "482913"); err != nil {
		t.Fatalf("Consume after miss failed: %v", err)
	}
}

func TestOTPConsumeRaceHasOneWinner(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "t:otp")
	ctx := context.Background()

	if err := store.Save(ctx, "login", "alice@example.com", "482913", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const racers = 8
	results := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Consume(ctx, "login", "alice@example.com", "482913")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCodeNotFound):
		default:
			t.Fatalf("unexpected racer error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestOTPExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "t:otp")
	ctx := context.Background()

	if err := store.Save(ctx, "login", "alice@example.com", "482913", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)

	if err := store.Consume(ctx, "login", "alice@example.com", "482913"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("got %v, want ErrCodeNotFound", err)
	}
}

func TestOTPSaveOverwrites(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "t:otp")
	ctx := context.Background()

	if err := store.Save(ctx, "login", "alice@example.com", "111111", time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "login", "alice@example.com", "222222", time.Minute); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	if err := store.Consume(ctx, "login", "alice@example.com", "111111"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("old code: got %v, want ErrCodeMismatch", err)
	}
	if err := store.Consume(ctx, "login", "alice@example.com", "222222"); err != nil {
		t.Fatalf("new code failed: %v", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewPayloadStore(rdb, "t:reg")
	ctx := context.Background()

	payload := []byte(`{"email":"alice@example.com"}`)
	if err := store.Save(ctx, "corr-1", payload, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "corr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload = %s", got)
	}

	if err := store.Delete(ctx, "corr-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "corr-1"); !errors.Is(err, ErrPayloadNotFound) {
		t.Fatalf("after delete: got %v, want ErrPayloadNotFound", err)
	}

	// Expiry behaves like deletion.
	if err := store.Save(ctx, "corr-2", payload, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)
	if _, err := store.Get(ctx, "corr-2"); !errors.Is(err, ErrPayloadNotFound) {
		t.Fatalf("after expiry: got %v, want ErrPayloadNotFound", err)
	}
}

func TestRevocationLifetimeTracksToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb, "t:deny")
	ctx := context.Background()

	var digest [32]byte
	copy(digest[:], "0123456789abcdef0123456789abcdef")

	revoked, err := store.IsRevoked(ctx, digest)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("unknown digest must not be revoked")
	}

	if err := store.Revoke(ctx, digest, time.Hour); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ = store.IsRevoked(ctx, digest); !revoked {
		t.Fatal("digest should be revoked")
	}

	// The entry purges itself when the token would have expired anyway.
	mr.FastForward(time.Hour + time.Second)
	if revoked, _ = store.IsRevoked(ctx, digest); revoked {
		t.Fatal("entry should have expired")
	}
}

func TestRevokeIgnoresExpiredTokens(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb, "t:deny")
	ctx := context.Background()

	var digest [32]byte
	if err := store.Revoke(ctx, digest, -time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, digest); revoked {
		t.Fatal("nothing should be stored for a past-expiry token")
	}
}

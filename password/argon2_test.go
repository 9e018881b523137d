package password

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Cost parameters at the validation floor keep the suite fast.
func testHasher(t *testing.T) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return hasher
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := testHasher(t)

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash %q is not PHC encoded", hash)
	}

	ok, err := hasher.Verify("correct-horse", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want match", ok, err)
	}
	ok, err = hasher.Verify("wrong-horse", hash)
	if err != nil || ok {
		t.Fatalf("Verify = %v, %v; want mismatch", ok, err)
	}
}

func TestHashSaltsEveryCall(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("equal passwords must not produce equal hashes")
	}
}

func TestHashEnforcesPolicy(t *testing.T) {
	hasher := testHasher(t)

	if _, err := hasher.Hash("short"); !errors.Is(err, ErrPolicy) {
		t.Fatalf("got %v, want ErrPolicy", err)
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := testHasher(t)

	cases := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA",
	}
	for _, encoded := range cases {
		if _, err := hasher.Verify("correct-horse", encoded); err == nil {
			t.Fatalf("hash %q accepted", encoded)
		}
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(c *Config) { c.Memory = 1024 }},
		{"time", func(c *Config) { c.Time = 0 }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"salt", func(c *Config) { c.SaltLength = 8 }},
		{"key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range cases {
		cfg := Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
		tc.mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: weak config accepted", tc.name)
		}
	}
}

func TestHistoryValidate(t *testing.T) {
	hasher := testHasher(t)
	guard := NewHistory(hasher, 3)
	ctx := context.Background()

	current, _ := hasher.Hash("password-now")
	oldOne, _ := hasher.Hash("password-one")
	oldTwo, _ := hasher.Hash("password-two")
	history := []string{oldOne, oldTwo}

	if err := guard.Validate(ctx, "password-now", current, history); !errors.Is(err, ErrSameAsCurrent) {
		t.Fatalf("current: got %v, want ErrSameAsCurrent", err)
	}
	if err := guard.Validate(ctx, "password-two", current, history); !errors.Is(err, ErrFoundInHistory) {
		t.Fatalf("historical: got %v, want ErrFoundInHistory", err)
	}
	if err := guard.Validate(ctx, "password-new", current, history); err != nil {
		t.Fatalf("fresh candidate rejected: %v", err)
	}
}

func TestHistoryValidateIgnoresBeyondDepth(t *testing.T) {
	hasher := testHasher(t)
	guard := NewHistory(hasher, 2)
	ctx := context.Background()

	current, _ := hasher.Hash("password-now")
	oldOne, _ := hasher.Hash("password-one")
	oldTwo, _ := hasher.Hash("password-two")
	ancient, _ := hasher.Hash("password-ancient")

	// The third slot is past the guard's depth.
	history := []string{oldOne, oldTwo, ancient}
	if err := guard.Validate(ctx, "password-ancient", current, history); err != nil {
		t.Fatalf("beyond-depth candidate rejected: %v", err)
	}
}

func TestHistoryValidateSurfacesBrokenHashes(t *testing.T) {
	hasher := testHasher(t)
	guard := NewHistory(hasher, 3)
	ctx := context.Background()

	current, _ := hasher.Hash("password-now")
	oldOne, _ := hasher.Hash("password-one")

	// A current hash that cannot be verified must fail the guard, not
	// wave the candidate through.
	err := guard.Validate(ctx, "password-new", "not-a-phc-hash", []string{oldOne})
	if err == nil || errors.Is(err, ErrSameAsCurrent) || errors.Is(err, ErrFoundInHistory) {
		t.Fatalf("broken current hash: got %v, want a verification error", err)
	}

	// Same for a broken historical entry.
	err = guard.Validate(ctx, "password-new", current, []string{"not-a-phc-hash"})
	if err == nil || errors.Is(err, ErrSameAsCurrent) || errors.Is(err, ErrFoundInHistory) {
		t.Fatalf("broken history entry: got %v, want a verification error", err)
	}

	// A definite history match still wins over a broken sibling entry.
	if err := guard.Validate(ctx, "password-one", current, []string{oldOne, "not-a-phc-hash"}); !errors.Is(err, ErrFoundInHistory) {
		t.Fatalf("got %v, want ErrFoundInHistory", err)
	}
}

func TestHistoryValidateSkipsEmptySlots(t *testing.T) {
	hasher := testHasher(t)
	guard := NewHistory(hasher, 3)
	ctx := context.Background()

	current, _ := hasher.Hash("password-now")
	if err := guard.Validate(ctx, "password-new", current, []string{"", "", ""}); err != nil {
		t.Fatalf("empty history rejected candidate: %v", err)
	}
}

func TestShift(t *testing.T) {
	got := Shift([]string{"b", "c"}, "a", 3)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}

	// The oldest entry rolls off once depth is reached.
	got = Shift([]string{"b", "c", "d"}, "a", 3)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("got %v", got)
	}

	// Empty slots are dropped during the shift.
	got = Shift([]string{"", "b"}, "a", 3)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}

	if got := Shift([]string{"b"}, "a", 0); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

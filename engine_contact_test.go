package digivahan

import (
	"context"
	"errors"
	"testing"
)

func TestContactVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")
	if stored := env.accounts.get(account.ID); stored.PhoneVerified {
		t.Fatal("phone should start unverified")
	}

	if err := env.engine.RequestContactVerification(ctx, account.ID, ChannelPhone); err != nil {
		t.Fatalf("RequestContactVerification failed: %v", err)
	}

	sent := env.lastCode(t)
	if sent.contact != account.Phone || sent.channel != ChannelPhone || sent.purpose != PurposeContactVerify {
		t.Fatalf("code went to the wrong place: %+v", sent)
	}

	if err := env.engine.ConfirmContactVerification(ctx, account.ID, ChannelPhone, sent.code); err != nil {
		t.Fatalf("ConfirmContactVerification failed: %v", err)
	}

	stored := env.accounts.get(account.ID)
	if !stored.PhoneVerified {
		t.Fatal("phone should be verified")
	}
	if !stored.EmailVerified {
		t.Fatal("email flag must be untouched")
	}

	// The code is consumed.
	if err := env.engine.ConfirmContactVerification(ctx, account.ID, ChannelPhone, sent.code); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("reused code: got %v, want ErrOTPExpired", err)
	}
}

func TestContactVerificationWrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")
	if err := env.engine.RequestContactVerification(ctx, account.ID, ChannelPhone); err != nil {
		t.Fatalf("RequestContactVerification failed: %v", err)
	}

	code := env.lastCode(t).code
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if err := env.engine.ConfirmContactVerification(ctx, account.ID, ChannelPhone, wrong); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("got %v, want ErrOTPInvalid", err)
	}

	// The right code still works after a miss.
	if err := env.engine.ConfirmContactVerification(ctx, account.ID, ChannelPhone, code); err != nil {
		t.Fatalf("ConfirmContactVerification failed: %v", err)
	}
}

func TestPrimaryContactChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")

	id, err := env.engine.RequestPrimaryContactChange(ctx, account.ID, ChannelEmail, "new-hank@example.com")
	if err != nil {
		t.Fatalf("RequestPrimaryContactChange failed: %v", err)
	}

	sent := env.lastCode(t)
	if sent.contact != "new-hank@example.com" {
		t.Fatalf("code must go to the new value, went to %s", sent.contact)
	}
	if sent.purpose != PurposeContactChange {
		t.Fatalf("purpose = %s", sent.purpose)
	}

	if err := env.engine.ConfirmPrimaryContactChange(ctx, account.ID, id, sent.code); err != nil {
		t.Fatalf("ConfirmPrimaryContactChange failed: %v", err)
	}

	stored := env.accounts.get(account.ID)
	if stored.Email != "new-hank@example.com" {
		t.Fatalf("email = %s, want new-hank@example.com", stored.Email)
	}
	if !stored.EmailVerified {
		t.Fatal("new primary contact should be marked verified")
	}

	// Login works with the new contact, not the old one.
	if _, err := env.engine.SignIn(ctx, "new-hank@example.com", "correct-horse"); err != nil {
		t.Fatalf("SignIn with new email failed: %v", err)
	}
	if _, err := env.engine.SignIn(ctx, "hank@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn with old email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestPrimaryContactChangeRejectsTakenValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")
	env.seedAccount(t, "iris@example.com", "+12025550109", "correct-horse")

	_, err := env.engine.RequestPrimaryContactChange(ctx, account.ID, ChannelEmail, "iris@example.com")
	if !errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("got %v, want ErrDuplicateContact", err)
	}
}

func TestPrimaryContactChangeWrongAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")
	other := env.seedAccount(t, "iris@example.com", "+12025550109", "correct-horse")

	id, err := env.engine.RequestPrimaryContactChange(ctx, account.ID, ChannelEmail, "new-hank@example.com")
	if err != nil {
		t.Fatalf("RequestPrimaryContactChange failed: %v", err)
	}
	code := env.lastCode(t).code

	// A correlation id cannot be confirmed by a different account.
	if err := env.engine.ConfirmPrimaryContactChange(ctx, other.ID, id, code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("got %v, want ErrOTPInvalid", err)
	}
}

func TestPrimaryContactChangeRejectsBadValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, "hank@example.com", "+12025550108", "correct-horse")

	cases := []struct {
		name    string
		channel ContactChannel
		value   string
	}{
		{"bad email", ChannelEmail, "not-an-email"},
		{"bad phone", ChannelPhone, "abc"},
		{"unknown channel", ContactChannel("fax"), "hank@example.com"},
	}
	for _, tc := range cases {
		if _, err := env.engine.RequestPrimaryContactChange(ctx, account.ID, tc.channel, tc.value); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: got %v, want ErrValidation", tc.name, err)
		}
	}
}

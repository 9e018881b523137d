package digivahan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/limiters"
)

// resolveByContact looks up an account by email or phone and reports which
// channel the contact matched.
func (e *Engine) resolveByContact(ctx context.Context, contact string) (*Account, ContactChannel, error) {
	account, err := e.accounts.GetByContact(ctx, contact)
	if err != nil {
		return nil, "", err
	}
	channel := ChannelEmail
	if contact == account.Phone {
		channel = ChannelPhone
	}
	return account, channel, nil
}

// loginGates applies the state checks shared by every sign-in path.
func loginGates(account *Account, now time.Time) error {
	if !account.Active {
		return ErrAccountDeactivated
	}
	if account.SuspendedAt(now) {
		var until time.Time
		if account.SuspendedUntil != nil {
			until = *account.SuspendedUntil
		}
		return &SuspensionError{Until: until, Reason: account.SuspensionReason}
	}
	return nil
}

// completeSignIn finalizes a successful authentication: cancels a pending
// deletion if one exists, marks the account logged in and issues a token.
func (e *Engine) completeSignIn(ctx context.Context, account *Account) (*SignInResult, error) {
	if account.Status == AccountPendingDeletion {
		e.recoverFromDeletion(ctx, account)
	}

	if err := e.accounts.SetLoggedIn(ctx, account.ID, true); err != nil {
		log.Printf("digivahan: signin: marking %s logged in: %v", account.ID, err)
	}

	token, err := e.userTokens.Create(account.ID, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Token: token, Account: account}, nil
}

// recoverFromDeletion reverses a scheduled deletion after a successful
// login inside the grace window. Every step is best-effort: a recovery
// cascade failure is logged but never blocks the login itself.
func (e *Engine) recoverFromDeletion(ctx context.Context, account *Account) {
	if err := e.accounts.CancelDeletion(ctx, account.ID); err != nil {
		log.Printf("digivahan: recovery: cancelling deletion for %s: %v", account.ID, err)
	} else {
		account.Status = AccountActive
		account.DeletionDate = nil
	}
	if err := e.deletions.DeletePendingForAccount(ctx, account.ID); err != nil {
		log.Printf("digivahan: recovery: removing pending record for %s: %v", account.ID, err)
	}
	if _, err := e.qr.SetStatusForAccount(ctx, account.ID, QRActive); err != nil {
		log.Printf("digivahan: recovery: reactivating qr assignments for %s: %v", account.ID, err)
	}
	e.metricInc(MetricDeletionCancelled)
	e.emitAudit(ctx, EventDeletionCancel, true, account.ID, nil, nil)
}

// SignIn authenticates by contact identifier and password. An unknown
// contact and a wrong password are indistinguishable to the caller.
func (e *Engine) SignIn(ctx context.Context, contact, pass string) (*SignInResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.signIn(ctx, contact, pass)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, EventSignIn, false, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, EventSignIn, true, result.Account.ID, nil, nil)
	return result, nil
}

func (e *Engine) signIn(ctx context.Context, contact, pass string) (*SignInResult, error) {
	if contact == "" || pass == "" {
		return nil, fmt.Errorf("%w: contact and password required", ErrValidation)
	}

	account, _, err := e.resolveByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(pass, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := loginGates(account, time.Now()); err != nil {
		return nil, err
	}

	return e.completeSignIn(ctx, account)
}

// RequestLoginOTP sends a login code to the given contact identifier. The
// code is keyed by the contact itself, so confirmation needs no separate
// correlation id.
func (e *Engine) RequestLoginOTP(ctx context.Context, contact string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.requestLoginOTP(ctx, contact)
	if err != nil {
		e.emitAudit(ctx, EventLoginOTPRequest, false, "", err, nil)
		return err
	}

	e.metricInc(MetricLoginOTPRequest)
	e.emitAudit(ctx, EventLoginOTPRequest, true, "", nil, nil)
	return nil
}

func (e *Engine) requestLoginOTP(ctx context.Context, contact string) error {
	if contact == "" {
		return fmt.Errorf("%w: contact required", ErrValidation)
	}

	account, channel, err := e.resolveByContact(ctx, contact)
	if err != nil {
		return err
	}
	if err := loginGates(account, time.Now()); err != nil {
		return err
	}

	return e.issueContactOTP(ctx, PurposeLogin, contact, channel)
}

// issueContactOTP runs the shared request path for codes keyed by the
// delivery contact itself.
func (e *Engine) issueContactOTP(ctx context.Context, purpose OTPPurpose, contact string, channel ContactChannel) error {
	return e.issueKeyedOTP(ctx, purpose, contact, contact, channel)
}

// issueKeyedOTP is the shared request path for every OTP issue after the
// first: cooldown, daily cap, store, deliver, roll back on delivery
// failure. key is the lookup key on confirm and need not be the contact.
func (e *Engine) issueKeyedOTP(ctx context.Context, purpose OTPPurpose, key, contact string, channel ContactChannel) error {
	cooldownID := string(purpose) + ":" + key
	if err := e.cooldown.Mark(ctx, cooldownID); err != nil {
		if errors.Is(err, limiters.ErrCooldown) {
			return ErrResendCooldown
		}
		return storeErr(err)
	}
	if err := e.checkDailyLimit(ctx, contact); err != nil {
		return err
	}

	code, err := internal.NewNumericCode(e.config.OTP.Digits)
	if err != nil {
		return err
	}
	if err := e.otpStore.Save(ctx, string(purpose), key, code, e.config.OTP.CodeTTL); err != nil {
		return storeErr(err)
	}

	if err := e.deliver(ctx, contact, channel, code, purpose); err != nil {
		// An immediate retry must not be locked out by a send that never
		// happened; only the daily counter keeps the failed attempt.
		_ = e.otpStore.Delete(ctx, string(purpose), key)
		_ = e.cooldown.Clear(ctx, cooldownID)
		e.metricInc(MetricOTPDeliveryFailure)
		return err
	}
	return nil
}

// ConfirmLoginOTP consumes a login code and signs the account in.
func (e *Engine) ConfirmLoginOTP(ctx context.Context, contact, code string) (*SignInResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.confirmLoginOTP(ctx, contact, code)
	if err != nil {
		e.metricInc(MetricLoginOTPFailure)
		e.emitAudit(ctx, EventLoginOTPConfirm, false, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginOTPSuccess)
	e.emitAudit(ctx, EventLoginOTPConfirm, true, result.Account.ID, nil, nil)
	return result, nil
}

func (e *Engine) confirmLoginOTP(ctx context.Context, contact, code string) (*SignInResult, error) {
	if contact == "" || code == "" {
		return nil, fmt.Errorf("%w: contact and code required", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposeLogin, contact, code); err != nil {
		return nil, err
	}

	account, _, err := e.resolveByContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	if err := loginGates(account, time.Now()); err != nil {
		return nil, err
	}

	return e.completeSignIn(ctx, account)
}

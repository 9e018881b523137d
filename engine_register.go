package digivahan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/limiters"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/stores"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/password"
	"github.com/google/uuid"
)

// registrationPayload is the pending-account snapshot held in Redis between
// BeginRegistration and ConfirmRegistration. The password is hashed before
// it is stored; plaintext never leaves the Begin call.
type registrationPayload struct {
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	PasswordHash string         `json:"password_hash"`
	Primary      ContactChannel `json:"primary"`
}

func (p registrationPayload) primaryContact() string {
	if p.Primary == ChannelPhone {
		return p.Phone
	}
	return p.Email
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func validPhone(phone string) bool {
	if len(phone) < 8 || len(phone) > 16 {
		return false
	}
	for i, r := range phone {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// deliver sends a code over the configured channel with a bounded timeout.
// A timeout counts as delivery failure.
func (e *Engine) deliver(ctx context.Context, contact string, channel ContactChannel, code string, purpose OTPPurpose) error {
	sendCtx := ctx
	if e.config.OTP.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.config.OTP.DeliveryTimeout)
		defer cancel()
	}
	if err := e.otpChannel.Send(sendCtx, contact, channel, code, purpose); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// checkDailyLimit maps the limiter's errors into the engine taxonomy.
func (e *Engine) checkDailyLimit(ctx context.Context, contact string) error {
	if err := e.dailyLimiter.Allow(ctx, contact, time.Now()); err != nil {
		if errors.Is(err, limiters.ErrDailyLimit) {
			e.metricInc(MetricOTPRateLimited)
			return ErrRateLimited
		}
		return storeErr(err)
	}
	return nil
}

// contactMustBeFree returns ErrDuplicateContact when any account already
// holds the given email or phone.
func (e *Engine) contactMustBeFree(ctx context.Context, contact string) error {
	_, err := e.accounts.GetByContact(ctx, contact)
	switch {
	case err == nil:
		return ErrDuplicateContact
	case errors.Is(err, ErrAccountNotFound):
		return nil
	default:
		return err
	}
}

// BeginRegistration validates the input, snapshots it under a fresh
// correlation id and sends a signup OTP to the primary contact. No account
// exists until ConfirmRegistration succeeds; an abandoned registration
// evaporates with the Redis TTL.
func (e *Engine) BeginRegistration(ctx context.Context, input RegistrationInput) (string, error) {
	if e == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}

	id, err := e.beginRegistration(ctx, input)
	if err != nil {
		e.emitAudit(ctx, EventRegisterBegin, false, "", err, nil)
		return "", err
	}

	e.metricInc(MetricRegisterBegin)
	e.emitAudit(ctx, EventRegisterBegin, true, "", nil, func() map[string]string {
		return map[string]string{"correlation_id": id}
	})
	return id, nil
}

func (e *Engine) beginRegistration(ctx context.Context, input RegistrationInput) (string, error) {
	if !validEmail(input.Email) {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if !validPhone(input.Phone) {
		return "", fmt.Errorf("%w: invalid phone", ErrValidation)
	}
	if input.Primary != ChannelEmail && input.Primary != ChannelPhone {
		return "", fmt.Errorf("%w: primary must be email or phone", ErrValidation)
	}

	if err := e.contactMustBeFree(ctx, input.Email); err != nil {
		return "", err
	}
	if err := e.contactMustBeFree(ctx, input.Phone); err != nil {
		return "", err
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return "", ErrPasswordPolicy
		}
		return "", err
	}

	payload := registrationPayload{
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hash,
		Primary:      input.Primary,
	}

	if err := e.checkDailyLimit(ctx, payload.primaryContact()); err != nil {
		return "", err
	}

	id := uuid.NewString()

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if err := e.payloads.Save(ctx, id, data, e.config.OTP.CodeTTL); err != nil {
		return "", storeErr(err)
	}

	code, err := internal.NewNumericCode(e.config.OTP.Digits)
	if err != nil {
		return "", err
	}
	if err := e.otpStore.Save(ctx, string(PurposeSignup), id, code, e.config.OTP.CodeTTL); err != nil {
		return "", storeErr(err)
	}
	// Arms the resend cooldown for the initial send as well.
	_ = e.cooldown.Mark(ctx, id)

	if err := e.deliver(ctx, payload.primaryContact(), input.Primary, code, PurposeSignup); err != nil {
		// Roll back the code, snapshot, and cooldown marker so a later
		// retry starts clean. The daily counter stays incremented: a
		// failed provider call still spent a send.
		_ = e.otpStore.Delete(ctx, string(PurposeSignup), id)
		_ = e.payloads.Delete(ctx, id)
		_ = e.cooldown.Clear(ctx, id)
		e.metricInc(MetricOTPDeliveryFailure)
		return "", err
	}

	return id, nil
}

// ConfirmRegistration consumes the signup OTP and materializes the account.
// The code is single-use: of two concurrent confirmations with the right
// code, exactly one wins and the other sees ErrOTPExpired.
func (e *Engine) ConfirmRegistration(ctx context.Context, correlationID, code string) (*SignInResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.confirmRegistration(ctx, correlationID, code)
	if err != nil {
		e.metricInc(MetricRegisterConfirmFailure)
		e.emitAudit(ctx, EventRegisterConfirm, false, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterConfirmSuccess)
	e.emitAudit(ctx, EventRegisterConfirm, true, result.Account.ID, nil, nil)
	return result, nil
}

func (e *Engine) confirmRegistration(ctx context.Context, correlationID, code string) (*SignInResult, error) {
	if correlationID == "" || code == "" {
		return nil, fmt.Errorf("%w: correlation id and code required", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposeSignup, correlationID, code); err != nil {
		return nil, err
	}

	data, err := e.payloads.Get(ctx, correlationID)
	if err != nil {
		if errors.Is(err, stores.ErrPayloadNotFound) {
			return nil, ErrOTPExpired
		}
		return nil, storeErr(err)
	}

	var payload registrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	account := &Account{
		ID:            uuid.NewString(),
		Email:         payload.Email,
		Phone:         payload.Phone,
		Primary:       payload.Primary,
		PasswordHash:  payload.PasswordHash,
		EmailVerified: payload.Primary == ChannelEmail,
		PhoneVerified: payload.Primary == ChannelPhone,
		Active:        true,
		LoggedIn:      true,
		Status:        AccountActive,
		CreatedAt:     time.Now(),
	}

	if err := e.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	_ = e.payloads.Delete(ctx, correlationID)

	token, err := e.userTokens.Create(account.ID, account.Email, account.Phone)
	if err != nil {
		return nil, err
	}

	return &SignInResult{Token: token, Account: account}, nil
}

// ResendRegistrationOTP issues a fresh signup code for a pending
// registration. The previous code is superseded, the resend cooldown and
// the daily cap both apply.
func (e *Engine) ResendRegistrationOTP(ctx context.Context, correlationID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.resendRegistrationOTP(ctx, correlationID)
	if err != nil {
		e.emitAudit(ctx, EventRegisterResend, false, "", err, nil)
		return err
	}

	e.metricInc(MetricRegisterResend)
	e.emitAudit(ctx, EventRegisterResend, true, "", nil, nil)
	return nil
}

func (e *Engine) resendRegistrationOTP(ctx context.Context, correlationID string) error {
	if correlationID == "" {
		return fmt.Errorf("%w: correlation id required", ErrValidation)
	}

	data, err := e.payloads.Get(ctx, correlationID)
	if err != nil {
		if errors.Is(err, stores.ErrPayloadNotFound) {
			return ErrOTPExpired
		}
		return storeErr(err)
	}
	var payload registrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	if err := e.cooldown.Mark(ctx, correlationID); err != nil {
		if errors.Is(err, limiters.ErrCooldown) {
			return ErrResendCooldown
		}
		return storeErr(err)
	}
	if err := e.checkDailyLimit(ctx, payload.primaryContact()); err != nil {
		return err
	}

	code, err := internal.NewNumericCode(e.config.OTP.Digits)
	if err != nil {
		return err
	}
	if err := e.otpStore.Save(ctx, string(PurposeSignup), correlationID, code, e.config.OTP.CodeTTL); err != nil {
		return storeErr(err)
	}
	// Keeps the snapshot alive as long as the newest code.
	if err := e.payloads.Save(ctx, correlationID, data, e.config.OTP.CodeTTL); err != nil {
		return storeErr(err)
	}

	if err := e.deliver(ctx, payload.primaryContact(), payload.Primary, code, PurposeSignup); err != nil {
		_ = e.otpStore.Delete(ctx, string(PurposeSignup), correlationID)
		_ = e.cooldown.Clear(ctx, correlationID)
		e.metricInc(MetricOTPDeliveryFailure)
		return err
	}

	return nil
}

// consumeOTP is the single verification path for all flows: the stored
// code is deleted in the same atomic step that matches it.
func (e *Engine) consumeOTP(ctx context.Context, purpose OTPPurpose, id, submitted string) error {
	err := e.otpStore.Consume(ctx, string(purpose), id, submitted)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrCodeNotFound):
		return ErrOTPExpired
	case errors.Is(err, stores.ErrCodeMismatch):
		return ErrOTPInvalid
	default:
		return storeErr(err)
	}
}

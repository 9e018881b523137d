package digivahan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/stores"
	"github.com/google/uuid"
)

func contactForChannel(account *Account, channel ContactChannel) (string, error) {
	switch channel {
	case ChannelEmail:
		return account.Email, nil
	case ChannelPhone:
		return account.Phone, nil
	default:
		return "", fmt.Errorf("%w: unknown channel", ErrValidation)
	}
}

// RequestContactVerification sends a verification code to one of the
// account's stored contacts. The code is keyed by account and channel, so
// no correlation id is needed on confirm.
func (e *Engine) RequestContactVerification(ctx context.Context, accountID string, channel ContactChannel) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.requestContactVerification(ctx, accountID, channel)
	if err != nil {
		e.emitAudit(ctx, EventContactVerifyBegin, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricContactVerifyRequest)
	e.emitAudit(ctx, EventContactVerifyBegin, true, accountID, nil, func() map[string]string {
		return map[string]string{"channel": string(channel)}
	})
	return nil
}

func (e *Engine) requestContactVerification(ctx context.Context, accountID string, channel ContactChannel) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Active {
		return ErrAccountDeactivated
	}

	contact, err := contactForChannel(account, channel)
	if err != nil {
		return err
	}
	if contact == "" {
		return fmt.Errorf("%w: account has no %s contact", ErrValidation, channel)
	}

	return e.issueKeyedOTP(ctx, PurposeContactVerify, accountID+":"+string(channel), contact, channel)
}

// ConfirmContactVerification consumes the verification code and flips the
// channel's verified flag.
func (e *Engine) ConfirmContactVerification(ctx context.Context, accountID string, channel ContactChannel, code string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.confirmContactVerification(ctx, accountID, channel, code)
	if err != nil {
		e.metricInc(MetricContactVerifyFailure)
		e.emitAudit(ctx, EventContactVerifyDone, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricContactVerifySuccess)
	e.emitAudit(ctx, EventContactVerifyDone, true, accountID, nil, func() map[string]string {
		return map[string]string{"channel": string(channel)}
	})
	return nil
}

func (e *Engine) confirmContactVerification(ctx context.Context, accountID string, channel ContactChannel, code string) error {
	if accountID == "" || code == "" {
		return fmt.Errorf("%w: account id and code required", ErrValidation)
	}
	if channel != ChannelEmail && channel != ChannelPhone {
		return fmt.Errorf("%w: unknown channel", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposeContactVerify, accountID+":"+string(channel), code); err != nil {
		return err
	}

	return e.accounts.SetContactVerified(ctx, accountID, channel)
}

// contactChangePayload is the pending change held between request and
// confirm. The code goes to the NEW value, so confirmation proves
// ownership of the contact being adopted.
type contactChangePayload struct {
	AccountID string         `json:"account_id"`
	Channel   ContactChannel `json:"channel"`
	Value     string         `json:"value"`
}

// RequestPrimaryContactChange starts replacing the account's primary
// contact. The code is delivered to the new value and the change is
// snapshotted under a fresh correlation id until confirmed.
func (e *Engine) RequestPrimaryContactChange(ctx context.Context, accountID string, channel ContactChannel, newValue string) (string, error) {
	if e == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}

	id, err := e.requestPrimaryContactChange(ctx, accountID, channel, newValue)
	if err != nil {
		e.emitAudit(ctx, EventContactChangeBegin, false, accountID, err, nil)
		return "", err
	}

	e.metricInc(MetricContactChangeRequest)
	e.emitAudit(ctx, EventContactChangeBegin, true, accountID, nil, func() map[string]string {
		return map[string]string{"correlation_id": id, "channel": string(channel)}
	})
	return id, nil
}

func (e *Engine) requestPrimaryContactChange(ctx context.Context, accountID string, channel ContactChannel, newValue string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("%w: account id required", ErrValidation)
	}
	switch channel {
	case ChannelEmail:
		if !validEmail(newValue) {
			return "", fmt.Errorf("%w: invalid email", ErrValidation)
		}
	case ChannelPhone:
		if !validPhone(newValue) {
			return "", fmt.Errorf("%w: invalid phone", ErrValidation)
		}
	default:
		return "", fmt.Errorf("%w: unknown channel", ErrValidation)
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !account.Active {
		return "", ErrAccountDeactivated
	}

	if err := e.contactMustBeFree(ctx, newValue); err != nil {
		return "", err
	}

	payload := contactChangePayload{
		AccountID: accountID,
		Channel:   channel,
		Value:     newValue,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := e.payloads.Save(ctx, id, data, e.config.OTP.CodeTTL); err != nil {
		return "", storeErr(err)
	}

	if err := e.issueKeyedOTP(ctx, PurposeContactChange, id, newValue, channel); err != nil {
		_ = e.payloads.Delete(ctx, id)
		return "", err
	}

	return id, nil
}

// ConfirmPrimaryContactChange consumes the code sent to the new contact
// and commits the replacement. The new value becomes the primary contact
// and is marked verified.
func (e *Engine) ConfirmPrimaryContactChange(ctx context.Context, accountID, correlationID, code string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.confirmPrimaryContactChange(ctx, accountID, correlationID, code)
	if err != nil {
		e.metricInc(MetricContactChangeFailure)
		e.emitAudit(ctx, EventContactChangeDone, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricContactChangeSuccess)
	e.emitAudit(ctx, EventContactChangeDone, true, accountID, nil, nil)
	return nil
}

func (e *Engine) confirmPrimaryContactChange(ctx context.Context, accountID, correlationID, code string) error {
	if accountID == "" || correlationID == "" || code == "" {
		return fmt.Errorf("%w: account id, correlation id and code required", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposeContactChange, correlationID, code); err != nil {
		return err
	}

	data, err := e.payloads.Get(ctx, correlationID)
	if err != nil {
		if errors.Is(err, stores.ErrPayloadNotFound) {
			return ErrOTPExpired
		}
		return storeErr(err)
	}
	var payload contactChangePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.AccountID != accountID {
		return ErrOTPInvalid
	}

	if err := e.accounts.SetPrimaryContact(ctx, accountID, payload.Channel, payload.Value); err != nil {
		return err
	}
	_ = e.payloads.Delete(ctx, correlationID)

	return e.accounts.SetContactVerified(ctx, accountID, payload.Channel)
}


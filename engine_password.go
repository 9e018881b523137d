package digivahan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/password"
)

// commitNewPassword runs the reuse guard, hashes the candidate and commits
// hash plus shifted history in a single compare-and-swap against the hash
// the guard validated. A concurrent change between read and commit surfaces
// as ErrStaleAccount; one retry re-reads and re-validates before giving up.
func (e *Engine) commitNewPassword(ctx context.Context, account *Account, candidate string) error {
	for attempt := 0; ; attempt++ {
		if err := e.history.Validate(ctx, candidate, account.PasswordHash, account.PasswordHistory); err != nil {
			switch {
			case errors.Is(err, password.ErrSameAsCurrent):
				return ErrSamePassword
			case errors.Is(err, password.ErrFoundInHistory):
				e.metricInc(MetricPasswordChangeReuseRejected)
				return ErrPasswordReused
			default:
				return err
			}
		}

		newHash, err := e.passwordHash.Hash(candidate)
		if err != nil {
			if errors.Is(err, password.ErrPolicy) {
				return ErrPasswordPolicy
			}
			return err
		}

		history := password.Shift(account.PasswordHistory, account.PasswordHash, e.config.Password.HistoryDepth)

		err = e.accounts.CommitPassword(ctx, account.ID, account.PasswordHash, newHash, history)
		if err == nil {
			account.PasswordHash = newHash
			account.PasswordHistory = history
			return nil
		}
		if !errors.Is(err, ErrStaleAccount) || attempt >= 1 {
			return err
		}

		fresh, readErr := e.accounts.GetByID(ctx, account.ID)
		if readErr != nil {
			return readErr
		}
		*account = *fresh
	}
}

// ChangePassword rotates an authenticated account's password after
// verifying the old one. The new password must differ from the current and
// the last stored historical passwords.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPass, newPass string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.changePassword(ctx, accountID, oldPass, newPass)
	if err != nil {
		e.emitAudit(ctx, EventPasswordChange, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, EventPasswordChange, true, accountID, nil, nil)
	return nil
}

func (e *Engine) changePassword(ctx context.Context, accountID, oldPass, newPass string) error {
	if accountID == "" || oldPass == "" || newPass == "" {
		return fmt.Errorf("%w: account id, old and new password required", ErrValidation)
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := e.passwordHash.Verify(oldPass, account.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return ErrInvalidCredentials
	}

	return e.commitNewPassword(ctx, account, newPass)
}

// RequestPasswordReset sends a reset code to the given contact identifier.
func (e *Engine) RequestPasswordReset(ctx context.Context, contact string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.requestPasswordReset(ctx, contact)
	if err != nil {
		e.emitAudit(ctx, EventPasswordResetBegin, false, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, EventPasswordResetBegin, true, "", nil, nil)
	return nil
}

func (e *Engine) requestPasswordReset(ctx context.Context, contact string) error {
	if contact == "" {
		return fmt.Errorf("%w: contact required", ErrValidation)
	}

	account, channel, err := e.resolveByContact(ctx, contact)
	if err != nil {
		return err
	}
	if !account.Active {
		return ErrAccountDeactivated
	}

	return e.issueContactOTP(ctx, PurposePasswordReset, contact, channel)
}

// ConfirmPasswordReset consumes a reset code and installs the new
// password. The reuse guard applies exactly as it does for ChangePassword,
// and a successful reset counts as a login.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, contact, code, newPass string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	accountID, err := e.confirmPasswordReset(ctx, contact, code, newPass)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, EventPasswordResetDone, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, EventPasswordResetDone, true, accountID, nil, nil)
	return nil
}

func (e *Engine) confirmPasswordReset(ctx context.Context, contact, code, newPass string) (string, error) {
	if contact == "" || code == "" || newPass == "" {
		return "", fmt.Errorf("%w: contact, code and new password required", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposePasswordReset, contact, code); err != nil {
		return "", err
	}

	account, _, err := e.resolveByContact(ctx, contact)
	if err != nil {
		return "", err
	}
	if err := loginGates(account, time.Now()); err != nil {
		return account.ID, err
	}

	return account.ID, e.commitNewPassword(ctx, account, newPass)
}

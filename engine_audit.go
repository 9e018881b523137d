package digivahan

import (
	"context"
	"errors"
	"time"
)

// Audit event types emitted by the engine.
const (
	EventRegisterBegin      = "register.begin"
	EventRegisterConfirm    = "register.confirm"
	EventRegisterResend     = "register.resend"
	EventSignIn             = "signin.password"
	EventLoginOTPRequest    = "signin.otp.request"
	EventLoginOTPConfirm    = "signin.otp.confirm"
	EventLogout             = "logout"
	EventAuthenticate       = "authenticate"
	EventPasswordChange     = "password.change"
	EventPasswordResetBegin = "password.reset.begin"
	EventPasswordResetDone  = "password.reset.confirm"
	EventContactVerifyBegin = "contact.verify.begin"
	EventContactVerifyDone  = "contact.verify.confirm"
	EventContactChangeBegin = "contact.change.begin"
	EventContactChangeDone  = "contact.change.confirm"
	EventSuspend            = "account.suspend"
	EventUnsuspend          = "account.unsuspend"
	EventDeletionRequest    = "account.deletion.request"
	EventDeletionCancel     = "account.deletion.cancel"
	EventDeletionSweep      = "account.deletion.sweep"
	EventVaultIssue         = "vault.code.issue"
	EventVaultVerify        = "vault.code.verify"
	EventAdminSignIn        = "admin.signin"
	EventAdminVerify        = "admin.verify"
	EventAdminAuthenticate  = "admin.authenticate"
	EventAdminLogout        = "admin.logout"
)

// emitAudit builds and dispatches an audit event. metadata is invoked
// only when auditing is enabled so callers can defer map allocation.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, err error, metadata func() map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.dispatch(event)
}

// auditErrorCode maps engine errors to stable codes. Unrecognized
// errors collapse to "internal" so sink consumers never see raw
// error strings.
func auditErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrDuplicateContact):
		return "duplicate_contact"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrResendCooldown):
		return "resend_cooldown"
	case errors.Is(err, ErrOTPExpired):
		return "otp_expired"
	case errors.Is(err, ErrOTPInvalid):
		return "otp_invalid"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrSamePassword):
		return "same_password"
	case errors.Is(err, ErrPasswordReused):
		return "password_reused"
	case errors.Is(err, ErrPasswordPolicy):
		return "password_policy"
	case errors.Is(err, ErrStaleAccount):
		return "stale_account"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrAccountDeactivated):
		return "account_deactivated"
	case errors.Is(err, ErrAccountSuspended):
		return "account_suspended"
	case errors.Is(err, ErrNotFoundOrInvalidState):
		return "not_found_or_invalid_state"
	case errors.Is(err, ErrDeletionPending):
		return "deletion_pending"
	case errors.Is(err, ErrVehicleNotFound):
		return "vehicle_not_found"
	case errors.Is(err, ErrInvalidVaultCode):
		return "invalid_vault_code"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

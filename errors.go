package digivahan

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineNotReady is returned when a flow is invoked on an Engine that
	// is missing a dependency it needs.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrValidation covers missing or malformed input rejected before any
	// store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrAccountNotFound is returned when no account matches the given
	// identifier or contact.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateContact is returned when an email or phone is already
	// registered to another account.
	ErrDuplicateContact = errors.New("contact already registered")
	// ErrInvalidCredentials is returned on password mismatch during sign-in
	// and password change.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when the per-contact daily OTP send cap is
	// exceeded.
	ErrRateLimited = errors.New("otp daily limit reached")
	// ErrResendCooldown is returned when a resend is attempted inside the
	// cooldown window.
	ErrResendCooldown = errors.New("otp resend cooldown active")
	// ErrOTPExpired is returned when no stored code exists for the given key,
	// either because it expired or because it was already consumed.
	ErrOTPExpired = errors.New("otp expired or not found")
	// ErrOTPInvalid is returned when the submitted code does not match the
	// stored one.
	ErrOTPInvalid = errors.New("otp invalid")
	// ErrDeliveryFailed is returned when the external delivery channel
	// rejects or times out; ephemeral state written for the send is rolled
	// back first.
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrSamePassword is returned when a candidate password matches the
	// account's current password.
	ErrSamePassword = errors.New("new password matches current password")
	// ErrPasswordReused is returned when a candidate password matches one of
	// the stored historical hashes.
	ErrPasswordReused = errors.New("password found in recent history")
	// ErrPasswordPolicy is returned when a candidate password fails the
	// hashing policy (length and parameters).
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrStaleAccount is returned when a compare-and-swap update observed a
	// concurrent modification; callers may retry.
	ErrStaleAccount = errors.New("account modified concurrently")
	// ErrMissingToken is returned by Authenticate when no token is supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrTokenRevoked is returned for tokens present on the denylist.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenInvalid is returned for malformed tokens or signature failures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens past their expiry claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrAccountDeactivated is returned for accounts flagged inactive.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrAccountSuspended is returned when an account is inside a suspension
	// window. The concrete error is a *SuspensionError carrying the window.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrNotFoundOrInvalidState is returned by Suspend and RemoveSuspension
	// when the conditional update matched nothing: either the account does
	// not exist or it is not in the required state.
	ErrNotFoundOrInvalidState = errors.New("account not found or not in required state")
	// ErrDeletionPending is returned when a deletion request is made for an
	// account that already has a pending deletion record.
	ErrDeletionPending = errors.New("deletion already pending")
	// ErrVehicleNotFound is returned when the vehicle is not in the
	// account's garage.
	ErrVehicleNotFound = errors.New("vehicle not found in garage")
	// ErrInvalidVaultCode is returned on vault code mismatch, including the
	// case where the code has already been cleared.
	ErrInvalidVaultCode = errors.New("invalid security code")
	// ErrStoreUnavailable wraps unexpected persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// SuspensionError carries the suspension window so clients can render the
// relevant dates without a second round-trip. It matches
// [ErrAccountSuspended] under errors.Is.
type SuspensionError struct {
	Until  time.Time
	Reason string
}

func (e *SuspensionError) Error() string {
	return fmt.Sprintf("account suspended until %s: %s", e.Until.Format(time.RFC3339), e.Reason)
}

// Is reports whether target is ErrAccountSuspended.
func (e *SuspensionError) Is(target error) bool {
	return target == ErrAccountSuspended
}

package internaldefs

import (
	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

// CounterDef binds one engine counter to its stable exported name.
type CounterDef struct {
	ID   digivahan.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its stable exported name.
type HistogramDef struct {
	ID   digivahan.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a fixed order.
var CounterDefs = []CounterDef{
	{ID: digivahan.MetricRegisterBegin, Name: "digivahan_register_begin_total", Help: "Started registrations."},
	{ID: digivahan.MetricRegisterConfirmSuccess, Name: "digivahan_register_confirm_success_total", Help: "Confirmed registrations."},
	{ID: digivahan.MetricRegisterConfirmFailure, Name: "digivahan_register_confirm_failure_total", Help: "Failed registration confirmations."},
	{ID: digivahan.MetricRegisterResend, Name: "digivahan_register_resend_total", Help: "Registration code resends."},
	{ID: digivahan.MetricOTPDeliveryFailure, Name: "digivahan_otp_delivery_failure_total", Help: "Code sends rejected by the delivery provider."},
	{ID: digivahan.MetricOTPRateLimited, Name: "digivahan_otp_rate_limited_total", Help: "Code sends rejected by the daily cap."},
	{ID: digivahan.MetricSignInSuccess, Name: "digivahan_signin_success_total", Help: "Successful password sign-ins."},
	{ID: digivahan.MetricSignInFailure, Name: "digivahan_signin_failure_total", Help: "Failed password sign-ins."},
	{ID: digivahan.MetricLoginOTPRequest, Name: "digivahan_login_otp_request_total", Help: "Login code requests."},
	{ID: digivahan.MetricLoginOTPSuccess, Name: "digivahan_login_otp_success_total", Help: "Successful OTP sign-ins."},
	{ID: digivahan.MetricLoginOTPFailure, Name: "digivahan_login_otp_failure_total", Help: "Failed OTP sign-ins."},
	{ID: digivahan.MetricLogout, Name: "digivahan_logout_total", Help: "Logout operations."},
	{ID: digivahan.MetricAuthenticateSuccess, Name: "digivahan_authenticate_success_total", Help: "Accepted bearer tokens."},
	{ID: digivahan.MetricAuthenticateFailure, Name: "digivahan_authenticate_failure_total", Help: "Rejected bearer tokens."},
	{ID: digivahan.MetricPasswordChangeSuccess, Name: "digivahan_password_change_success_total", Help: "Successful password changes."},
	{ID: digivahan.MetricPasswordChangeInvalidOld, Name: "digivahan_password_change_invalid_old_total", Help: "Password changes with a wrong old password."},
	{ID: digivahan.MetricPasswordChangeReuseRejected, Name: "digivahan_password_change_reuse_rejected_total", Help: "Password changes rejected for reuse."},
	{ID: digivahan.MetricPasswordResetRequest, Name: "digivahan_password_reset_request_total", Help: "Password reset requests."},
	{ID: digivahan.MetricPasswordResetSuccess, Name: "digivahan_password_reset_success_total", Help: "Successful password resets."},
	{ID: digivahan.MetricPasswordResetFailure, Name: "digivahan_password_reset_failure_total", Help: "Failed password resets."},
	{ID: digivahan.MetricContactVerifyRequest, Name: "digivahan_contact_verify_request_total", Help: "Contact verification requests."},
	{ID: digivahan.MetricContactVerifySuccess, Name: "digivahan_contact_verify_success_total", Help: "Successful contact verifications."},
	{ID: digivahan.MetricContactVerifyFailure, Name: "digivahan_contact_verify_failure_total", Help: "Failed contact verifications."},
	{ID: digivahan.MetricContactChangeRequest, Name: "digivahan_contact_change_request_total", Help: "Primary contact change requests."},
	{ID: digivahan.MetricContactChangeSuccess, Name: "digivahan_contact_change_success_total", Help: "Committed primary contact changes."},
	{ID: digivahan.MetricContactChangeFailure, Name: "digivahan_contact_change_failure_total", Help: "Failed primary contact changes."},
	{ID: digivahan.MetricAccountSuspended, Name: "digivahan_account_suspended_total", Help: "Applied suspensions."},
	{ID: digivahan.MetricAccountUnsuspended, Name: "digivahan_account_unsuspended_total", Help: "Lifted suspensions."},
	{ID: digivahan.MetricDeletionRequested, Name: "digivahan_deletion_requested_total", Help: "Scheduled account deletions."},
	{ID: digivahan.MetricDeletionCancelled, Name: "digivahan_deletion_cancelled_total", Help: "Deletions cancelled by login recovery."},
	{ID: digivahan.MetricDeletionSwept, Name: "digivahan_deletion_swept_total", Help: "Accounts removed by the sweep."},
	{ID: digivahan.MetricDeletionSweepFailure, Name: "digivahan_deletion_sweep_failure_total", Help: "Sweep records that failed to finalize."},
	{ID: digivahan.MetricVaultCodeIssued, Name: "digivahan_vault_code_issued_total", Help: "Issued vehicle security codes."},
	{ID: digivahan.MetricVaultCodeVerified, Name: "digivahan_vault_code_verified_total", Help: "Accepted vehicle security codes."},
	{ID: digivahan.MetricVaultCodeRejected, Name: "digivahan_vault_code_rejected_total", Help: "Rejected vehicle security codes."},
	{ID: digivahan.MetricAdminSignIn, Name: "digivahan_admin_signin_total", Help: "Admin password sign-ins."},
	{ID: digivahan.MetricAdminVerifySuccess, Name: "digivahan_admin_verify_success_total", Help: "Successful admin code verifications."},
	{ID: digivahan.MetricAdminVerifyFailure, Name: "digivahan_admin_verify_failure_total", Help: "Failed admin code verifications."},
	{ID: digivahan.MetricAdminAuthenticateFailure, Name: "digivahan_admin_authenticate_failure_total", Help: "Rejected admin bearer tokens."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: digivahan.MetricAuthenticateLatency, Name: "digivahan_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

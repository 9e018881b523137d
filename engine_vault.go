package digivahan

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal"
)

// IssueVaultCode generates a security code for one vehicle and stores it
// with its expiry. A vehicle holds at most one code; issuing again
// overwrites the previous code and restarts the window.
func (e *Engine) IssueVaultCode(ctx context.Context, accountID, vehicleID string) (string, error) {
	if e == nil || e.garage == nil {
		return "", ErrEngineNotReady
	}

	code, err := e.issueVaultCode(ctx, accountID, vehicleID)
	if err != nil {
		e.emitAudit(ctx, EventVaultIssue, false, accountID, err, nil)
		return "", err
	}

	e.metricInc(MetricVaultCodeIssued)
	e.emitAudit(ctx, EventVaultIssue, true, accountID, nil, func() map[string]string {
		return map[string]string{"vehicle_id": vehicleID}
	})
	return code, nil
}

func (e *Engine) issueVaultCode(ctx context.Context, accountID, vehicleID string) (string, error) {
	if accountID == "" || vehicleID == "" {
		return "", fmt.Errorf("%w: account id and vehicle id required", ErrValidation)
	}

	code, err := internal.NewNumericCode(e.config.Vault.CodeDigits)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(e.config.Vault.CodeTTL)
	if err := e.garage.SetSecurityCode(ctx, accountID, vehicleID, code, expiresAt); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyVaultCode checks a submitted code against the vehicle's stored one
// and, on a match inside the validity window, returns the vehicle's
// document list. The code stays valid for further verifications until its
// window closes. Expiry is judged against the stored timestamp at
// verification time; an expired code is cleared on first contact.
func (e *Engine) VerifyVaultCode(ctx context.Context, accountID, vehicleID, submitted string) ([]VehicleDocument, error) {
	if e == nil || e.garage == nil {
		return nil, ErrEngineNotReady
	}

	docs, err := e.verifyVaultCode(ctx, accountID, vehicleID, submitted)
	if err != nil {
		e.metricInc(MetricVaultCodeRejected)
		e.emitAudit(ctx, EventVaultVerify, false, accountID, err, nil)
		return nil, err
	}

	e.metricInc(MetricVaultCodeVerified)
	e.emitAudit(ctx, EventVaultVerify, true, accountID, nil, func() map[string]string {
		return map[string]string{"vehicle_id": vehicleID}
	})
	return docs, nil
}

func (e *Engine) verifyVaultCode(ctx context.Context, accountID, vehicleID, submitted string) ([]VehicleDocument, error) {
	if accountID == "" || vehicleID == "" || submitted == "" {
		return nil, fmt.Errorf("%w: account id, vehicle id and code required", ErrValidation)
	}

	stored, expiresAt, err := e.garage.GetSecurityCode(ctx, accountID, vehicleID)
	if err != nil {
		return nil, err
	}
	// An empty slot never matches, whatever was submitted.
	if stored == "" {
		return nil, ErrInvalidVaultCode
	}
	if !expiresAt.After(time.Now()) {
		if err := e.garage.ClearSecurityCode(ctx, accountID, vehicleID); err != nil {
			log.Printf("digivahan: vault: clearing expired code for vehicle %s: %v", vehicleID, err)
		}
		return nil, ErrInvalidVaultCode
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return nil, ErrInvalidVaultCode
	}

	return e.garage.ListDocuments(ctx, accountID, vehicleID)
}

package digivahan

import (
	"context"
	"fmt"
	"time"
)

// Suspend blocks the account until the given instant. The store applies
// the window conditionally, so suspending an account that is already
// inside a suspension window (or missing) returns
// ErrNotFoundOrInvalidState. Issued tokens stay valid but Authenticate
// rejects them for as long as the window is open.
func (e *Engine) Suspend(ctx context.Context, accountID, reason string, until time.Time) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.suspend(ctx, accountID, reason, until)
	if err != nil {
		e.emitAudit(ctx, EventSuspend, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricAccountSuspended)
	e.emitAudit(ctx, EventSuspend, true, accountID, nil, func() map[string]string {
		return map[string]string{"until": until.Format(time.RFC3339), "reason": reason}
	})
	return nil
}

func (e *Engine) suspend(ctx context.Context, accountID, reason string, until time.Time) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}
	now := time.Now()
	if !until.After(now) {
		return fmt.Errorf("%w: suspension end must be in the future", ErrValidation)
	}

	return e.accounts.Suspend(ctx, accountID, reason, until, now)
}

// RemoveSuspension lifts an active suspension early. Lifting a suspension
// that is not currently in effect returns ErrNotFoundOrInvalidState; a
// missing account and an expired window are not distinguished.
func (e *Engine) RemoveSuspension(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	err := e.removeSuspension(ctx, accountID)
	if err != nil {
		e.emitAudit(ctx, EventUnsuspend, false, accountID, err, nil)
		return err
	}

	e.metricInc(MetricAccountUnsuspended)
	e.emitAudit(ctx, EventUnsuspend, true, accountID, nil, nil)
	return nil
}

func (e *Engine) removeSuspension(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}
	return e.accounts.RemoveSuspension(ctx, accountID, time.Now())
}

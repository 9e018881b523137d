package digivahan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/limiters"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/stores"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/jwt"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/password"
)

// Engine is the account lifecycle core. Build one through the Builder and
// share it across goroutines; all state lives in the injected stores and in
// Redis, the Engine itself is immutable after Build.
type Engine struct {
	config Config

	accounts   AccountStore
	admins     AdminStore
	deletions  DeletionRecordStore
	qr         QRAssignmentStore
	garage     GarageStore
	otpChannel OTPChannel

	otpStore     *stores.OTPStore
	payloads     *stores.PayloadStore
	revoked      *stores.RevocationStore
	adminRevoked *stores.RevocationStore
	dailyLimiter *limiters.DailyLimiter
	cooldown     *limiters.Cooldown

	passwordHash *password.Argon2
	history      *password.History
	userTokens   *jwt.Manager
	adminTokens  *jwt.Manager

	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes the audit buffer and stops the dispatcher goroutine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeErr collapses Redis transport failures from the ephemeral stores
// into the engine's ErrStoreUnavailable sentinel.
func storeErr(err error) error {
	if errors.Is(err, stores.ErrRedisUnavailable) || errors.Is(err, limiters.ErrRedisUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// Authenticate validates a bearer token and resolves its account. The
// checks run in a fixed order so a revoked token is reported as revoked
// even after it expires: presence, denylist, signature and expiry, account
// existence, deactivation, suspension.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil || e.userTokens == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()

	result, err := e.authenticate(ctx, token)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		e.emitAudit(ctx, EventAuthenticate, false, "", err, nil)
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return result, nil
}

func (e *Engine) authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	hash := internal.HashToken(token)
	revoked, err := e.revoked.IsRevoked(ctx, hash)
	if err != nil {
		return nil, storeErr(err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := e.userTokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	account, err := e.accounts.GetByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if !account.Active {
		return nil, ErrAccountDeactivated
	}
	if account.SuspendedAt(time.Now()) {
		var until time.Time
		if account.SuspendedUntil != nil {
			until = *account.SuspendedUntil
		}
		return nil, &SuspensionError{Until: until, Reason: account.SuspensionReason}
	}

	return &AuthResult{
		AccountID: account.ID,
		Email:     account.Email,
		Phone:     account.Phone,
	}, nil
}

// Logout revokes the presented token. The denylist entry lives exactly as
// long as the token itself, so the set stays bounded by the token TTL.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.userTokens == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrMissingToken
	}

	claims, err := e.userTokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			// Nothing to revoke, the token is already unusable.
			e.emitAudit(ctx, EventLogout, true, "", nil, nil)
			return nil
		}
		e.emitAudit(ctx, EventLogout, false, "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := e.revoked.Revoke(ctx, internal.HashToken(token), ttl); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, EventLogout, false, claims.UID, err, nil)
		return err
	}

	if err := e.accounts.SetLoggedIn(ctx, claims.UID, false); err != nil {
		log.Printf("digivahan: logout: clearing logged-in flag for %s: %v", claims.UID, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, EventLogout, true, claims.UID, nil, nil)
	return nil
}

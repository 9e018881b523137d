package digivahan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/jwt"
)

// AdminSignIn is the first step of admin authentication: the password is
// checked and a login code goes to the admin's email. No token is issued
// until AdminVerify consumes the code.
func (e *Engine) AdminSignIn(ctx context.Context, email, pass string) error {
	if e == nil || e.admins == nil || e.adminTokens == nil {
		return ErrEngineNotReady
	}

	err := e.adminSignIn(ctx, email, pass)
	if err != nil {
		e.emitAudit(ctx, EventAdminSignIn, false, "", err, nil)
		return err
	}

	e.metricInc(MetricAdminSignIn)
	e.emitAudit(ctx, EventAdminSignIn, true, "", nil, nil)
	return nil
}

func (e *Engine) adminSignIn(ctx context.Context, email, pass string) error {
	if email == "" || pass == "" {
		return fmt.Errorf("%w: email and password required", ErrValidation)
	}

	admin, err := e.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	ok, err := e.passwordHash.Verify(pass, admin.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if !admin.Active {
		return ErrAccountDeactivated
	}

	return e.issueContactOTP(ctx, PurposeAdminLogin, email, ChannelEmail)
}

// AdminVerify consumes the admin login code and issues a token from the
// admin authority. Admin tokens are signed with a different key and issuer
// than user tokens, so neither validates against the other.
func (e *Engine) AdminVerify(ctx context.Context, email, code string) (string, error) {
	if e == nil || e.admins == nil || e.adminTokens == nil {
		return "", ErrEngineNotReady
	}

	token, adminID, err := e.adminVerify(ctx, email, code)
	if err != nil {
		e.metricInc(MetricAdminVerifyFailure)
		e.emitAudit(ctx, EventAdminVerify, false, adminID, err, nil)
		return "", err
	}

	e.metricInc(MetricAdminVerifySuccess)
	e.emitAudit(ctx, EventAdminVerify, true, adminID, nil, nil)
	return token, nil
}

func (e *Engine) adminVerify(ctx context.Context, email, code string) (string, string, error) {
	if email == "" || code == "" {
		return "", "", fmt.Errorf("%w: email and code required", ErrValidation)
	}

	if err := e.consumeOTP(ctx, PurposeAdminLogin, email, code); err != nil {
		return "", "", err
	}

	admin, err := e.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	if !admin.Active {
		return "", admin.ID, ErrAccountDeactivated
	}

	token, err := e.adminTokens.Create(admin.ID, admin.Email, "")
	if err != nil {
		return "", admin.ID, err
	}
	return token, admin.ID, nil
}

// AdminAuthenticate validates an admin bearer token: presence, the admin
// denylist, signature and expiry, then the admin record itself.
func (e *Engine) AdminAuthenticate(ctx context.Context, token string) (*AdminResult, error) {
	if e == nil || e.admins == nil || e.adminTokens == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.adminAuthenticate(ctx, token)
	if err != nil {
		e.metricInc(MetricAdminAuthenticateFailure)
		e.emitAudit(ctx, EventAdminAuthenticate, false, "", err, nil)
		return nil, err
	}
	return result, nil
}

func (e *Engine) adminAuthenticate(ctx context.Context, token string) (*AdminResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	hash := internal.HashToken(token)
	revoked, err := e.adminRevoked.IsRevoked(ctx, hash)
	if err != nil {
		return nil, storeErr(err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := e.adminTokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	admin, err := e.admins.GetByID(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if !admin.Active {
		return nil, ErrAccountDeactivated
	}

	return &AdminResult{AdminID: admin.ID, Email: admin.Email}, nil
}

// AdminLogout revokes an admin token on the admin denylist.
func (e *Engine) AdminLogout(ctx context.Context, token string) error {
	if e == nil || e.adminTokens == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrMissingToken
	}

	claims, err := e.adminTokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			e.emitAudit(ctx, EventAdminLogout, true, "", nil, nil)
			return nil
		}
		e.emitAudit(ctx, EventAdminLogout, false, "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := e.adminRevoked.Revoke(ctx, internal.HashToken(token), ttl); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, EventAdminLogout, false, claims.UID, err, nil)
		return err
	}

	e.emitAudit(ctx, EventAdminLogout, true, claims.UID, nil, nil)
	return nil
}

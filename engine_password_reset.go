package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/limiters"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
)

// RequestPasswordReset emails a reset link valid for PasswordReset.TTL. It
// returns nil for unknown emails so the response does not reveal which
// accounts exist. Requests are throttled per email and per client IP.
func (e *Engine) RequestPasswordReset(ctx context.Context, role Role, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	email = account.NormalizeEmail(email)
	if err := e.resetLimiter.CheckRequest(ctx, string(role), email, clientIPFromContext(ctx)); err != nil {
		return e.resetLimited(ctx, role, err)
	}
	e.metricInc(MetricPasswordResetRequest)

	acct, err := e.store.FindByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, role, "", "", nil, reason("user_not_found"))
			return nil
		}
		return storeError(err)
	}
	if acct.Pending() {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, role, acct.ID, "", nil, reason("invite_pending"))
		return nil
	}

	tok, err := e.issuer.Reset()
	if err != nil {
		return tokenError(err)
	}
	acct.ResetToken = tok.Hash
	acct.ResetTokenExpiry = tok.ExpiresAt
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.send(ctx, notify.KindReset, acct.Email, map[string]string{
		notify.DataLink: e.link(e.config.Links.ResetPath, url.Values{
			"token": {tok.Value},
			"role":  {string(role)},
		}),
		notify.DataName:      acct.Name,
		notify.DataRole:      string(role),
		notify.DataExpiresIn: expiresIn(e.config.PasswordReset.TTL),
	})
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, role, acct.ID, "", nil, nil)
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password. The
// account's session and any outstanding OTP are revoked.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, role Role, token, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := e.resetLimiter.CheckConfirm(ctx, clientIPFromContext(ctx)); err != nil {
		return e.resetLimited(ctx, role, err)
	}
	if token == "" {
		return e.resetFailed(ctx, role, "", ErrPasswordResetInvalid, "empty_token")
	}

	acct, err := e.store.FindByToken(ctx, role, account.FieldReset, tokens.Hash(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return e.resetFailed(ctx, role, "", ErrPasswordResetInvalid, "token_not_found")
		}
		return storeError(err)
	}

	switch err := tokens.Check(acct.ResetToken, acct.ResetTokenExpiry, token, e.now()); {
	case err == nil:
	case errors.Is(err, tokens.ErrTokenExpired):
		acct.ClearReset()
		if err := e.save(ctx, acct); err != nil {
			return err
		}
		return e.resetFailed(ctx, role, acct.ID, ErrPasswordResetExpired, "token_expired")
	default:
		return e.resetFailed(ctx, role, acct.ID, ErrPasswordResetInvalid, "token_mismatch")
	}

	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return e.resetFailed(ctx, role, acct.ID, err, "password_policy")
	}

	acct.PasswordHash = hash
	acct.ClearReset()
	acct.ClearSession()
	acct.ClearOTP()
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, role, acct.ID, "", nil, nil)
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, role Role, userID string, err error, why string) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, role, userID, "", err, reason(why))
	return err
}

func (e *Engine) resetLimited(ctx context.Context, role Role, err error) error {
	if !errors.Is(err, limiters.ErrResetRateLimited) {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	e.metricInc(MetricPasswordResetRateLimited)
	e.emitRateLimit(ctx, "password_reset", role, nil)
	return ErrPasswordResetRateLimited
}

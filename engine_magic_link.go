package clinicauth

import (
	"context"
	"errors"
	"net/url"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
)

// SendMagicLink emails a sign-in link to a patient, or to an admin or doctor
// who has no password. It returns nil for unknown or ineligible emails so the
// response does not reveal which accounts exist.
func (e *Engine) SendMagicLink(ctx context.Context, role Role, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	acct, err := e.store.FindByEmail(ctx, role, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.emitAudit(ctx, auditEventMagicLinkSent, false, role, "", "", nil, reason("user_not_found"))
			return nil
		}
		return storeError(err)
	}

	switch {
	case acct.Pending():
		e.emitAudit(ctx, auditEventMagicLinkSent, false, role, acct.ID, "", nil, reason("invite_pending"))
		return nil
	case role != RolePatient && acct.HasPassword():
		e.emitAudit(ctx, auditEventMagicLinkSent, false, role, acct.ID, "", nil, reason("password_required"))
		return nil
	}

	return e.issueMagicLink(ctx, acct)
}

// VerifyMagicLink consumes a magic link token and issues a session. The token
// is single use; expired tokens are discarded. Device trust is not touched.
func (e *Engine) VerifyMagicLink(ctx context.Context, role Role, token string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if token == "" {
		return nil, e.magicLinkFailed(ctx, role, "", ErrMagicLinkInvalid, "empty_token")
	}

	acct, err := e.store.FindByToken(ctx, role, account.FieldMagicLink, tokens.Hash(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, e.magicLinkFailed(ctx, role, "", ErrMagicLinkInvalid, "token_not_found")
		}
		return nil, storeError(err)
	}

	switch err := tokens.Check(acct.MagicLinkToken, acct.MagicLinkExpiresAt, token, e.now()); {
	case err == nil:
	case errors.Is(err, tokens.ErrTokenExpired):
		acct.ClearMagicLink()
		if err := e.save(ctx, acct); err != nil {
			return nil, err
		}
		return nil, e.magicLinkFailed(ctx, role, acct.ID, ErrMagicLinkExpired, "token_expired")
	default:
		return nil, e.magicLinkFailed(ctx, role, acct.ID, ErrMagicLinkInvalid, "token_mismatch")
	}

	acct.ClearMagicLink()
	e.metricInc(MetricMagicLinkSuccess)
	e.emitAudit(ctx, auditEventMagicLinkSuccess, true, role, acct.ID, "", nil, nil)

	return e.completeLogin(ctx, acct, "")
}

// issueMagicLink replaces any outstanding link for acct and sends a new one.
func (e *Engine) issueMagicLink(ctx context.Context, acct *account.Account) error {
	tok, err := e.issuer.MagicLink()
	if err != nil {
		return tokenError(err)
	}
	acct.MagicLinkToken = tok.Hash
	acct.MagicLinkExpiresAt = tok.ExpiresAt
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.send(ctx, notify.KindMagicLink, acct.Email, map[string]string{
		notify.DataLink: e.link(e.config.Links.MagicLinkPath, url.Values{
			"token": {tok.Value},
			"role":  {string(acct.Role)},
		}),
		notify.DataName:      acct.Name,
		notify.DataRole:      string(acct.Role),
		notify.DataExpiresIn: expiresIn(e.config.MagicLink.TTL),
	})

	e.metricInc(MetricMagicLinkSent)
	e.emitAudit(ctx, auditEventMagicLinkSent, true, acct.Role, acct.ID, "", nil, nil)
	return nil
}

func (e *Engine) magicLinkFailed(ctx context.Context, role Role, userID string, err error, why string) error {
	e.metricInc(MetricMagicLinkFailure)
	e.emitAudit(ctx, auditEventMagicLinkFailure, false, role, userID, "", err, reason(why))
	return err
}

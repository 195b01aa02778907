package clinicauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
)

// InviteAdmin creates a pending admin and emails an acceptance link valid for
// Invite.TTL. The pending admin cannot log in until the invite is accepted.
func (e *Engine) InviteAdmin(ctx context.Context, req InviteRequest) (*InviteResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email := account.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidRequest
	}

	if _, err := e.store.FindByEmail(ctx, RoleAdmin, email); err == nil {
		e.metricInc(MetricInviteFailure)
		e.emitAudit(ctx, auditEventInviteSent, false, RoleAdmin, "", "", ErrAccountExists, nil)
		return nil, ErrAccountExists
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, storeError(err)
	}

	tok, err := e.issuer.Invite()
	if err != nil {
		return nil, tokenError(err)
	}

	created, err := e.store.Create(ctx, &account.Account{
		Role:            RoleAdmin,
		Email:           email,
		Name:            strings.TrimSpace(req.Name),
		InviteToken:     tok.Hash,
		InviteExpiresAt: tok.ExpiresAt,
		InviteStatus:    account.InvitePending,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, storeError(err)
	}

	e.sendInvite(ctx, created, tok, req.InviterName)
	e.metricInc(MetricInviteSent)
	e.emitAudit(ctx, auditEventInviteSent, true, RoleAdmin, created.ID, "", nil, nil)

	return &InviteResult{
		AdminID:   created.ID,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// ValidateAdminInvite checks an invite link without consuming it.
func (e *Engine) ValidateAdminInvite(ctx context.Context, token, email string) (*InviteInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	acct, err := e.loadInvite(ctx, token, email)
	if err != nil {
		return nil, err
	}

	return &InviteInfo{
		AdminID:   acct.ID,
		Name:      acct.Name,
		Email:     acct.Email,
		ExpiresAt: acct.InviteExpiresAt,
	}, nil
}

// AcceptAdminInvite sets the admin's password and activates the account.
// The invite token cannot be used again.
func (e *Engine) AcceptAdminInvite(ctx context.Context, token, email, password string) error {
	if err := e.ready(); err != nil {
		return err
	}

	acct, err := e.loadInvite(ctx, token, email)
	if err != nil {
		return err
	}

	hash, err := e.hashPassword(password)
	if err != nil {
		e.emitAudit(ctx, auditEventInviteAccepted, false, RoleAdmin, acct.ID, "", err, nil)
		return err
	}

	acct.PasswordHash = hash
	// The digest stays so a reused link reports ErrInviteAlreadyAccepted;
	// the active status makes it unusable.
	acct.InviteExpiresAt = time.Time{}
	acct.InviteStatus = account.InviteActive
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.metricInc(MetricInviteAccepted)
	e.emitAudit(ctx, auditEventInviteAccepted, true, RoleAdmin, acct.ID, "", nil, nil)
	return nil
}

// ResendAdminInvite replaces the invite token of a pending admin and emails
// the new link. Active admins return ErrInviteNotPending.
func (e *Engine) ResendAdminInvite(ctx context.Context, adminID, inviterName string) error {
	if err := e.ready(); err != nil {
		return err
	}

	acct, err := e.pendingAdmin(ctx, adminID)
	if err != nil {
		return err
	}

	tok, err := e.issuer.Invite()
	if err != nil {
		return tokenError(err)
	}
	acct.InviteToken = tok.Hash
	acct.InviteExpiresAt = tok.ExpiresAt
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.sendInvite(ctx, acct, tok, inviterName)
	e.metricInc(MetricInviteSent)
	e.emitAudit(ctx, auditEventInviteResent, true, RoleAdmin, acct.ID, "", nil, nil)
	return nil
}

// DeleteAdminInvite removes a pending admin. It never deletes an active admin.
func (e *Engine) DeleteAdminInvite(ctx context.Context, adminID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	acct, err := e.pendingAdmin(ctx, adminID)
	if err != nil {
		return err
	}

	if err := e.store.Delete(ctx, RoleAdmin, acct.ID); err != nil {
		return lookupError(err, ErrAccountNotFound)
	}

	e.metricInc(MetricInviteDeleted)
	e.emitAudit(ctx, auditEventInviteDeleted, true, RoleAdmin, acct.ID, "", nil, nil)
	return nil
}

func (e *Engine) loadInvite(ctx context.Context, token, email string) (*account.Account, error) {
	if token == "" || email == "" {
		return nil, e.inviteFailed(ctx, "", ErrInviteInvalid, "missing_input")
	}

	acct, err := e.store.FindByEmail(ctx, RoleAdmin, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, e.inviteFailed(ctx, "", ErrInviteInvalid, "user_not_found")
		}
		return nil, storeError(err)
	}
	if !tokens.Matches(acct.InviteToken, token) {
		return nil, e.inviteFailed(ctx, acct.ID, ErrInviteInvalid, "token_mismatch")
	}
	if !acct.Pending() {
		return nil, e.inviteFailed(ctx, acct.ID, ErrInviteAlreadyAccepted, "not_pending")
	}

	if err := tokens.Check(acct.InviteToken, acct.InviteExpiresAt, token, e.now()); err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, e.inviteFailed(ctx, acct.ID, ErrInviteExpired, "token_expired")
		}
		return nil, e.inviteFailed(ctx, acct.ID, ErrInviteInvalid, "token_mismatch")
	}
	return acct, nil
}

func (e *Engine) pendingAdmin(ctx context.Context, adminID string) (*account.Account, error) {
	if adminID == "" {
		return nil, ErrAccountNotFound
	}
	acct, err := e.store.FindByID(ctx, RoleAdmin, adminID)
	if err != nil {
		return nil, lookupError(err, ErrAccountNotFound)
	}
	if !acct.Pending() {
		e.emitAudit(ctx, auditEventInviteFailure, false, RoleAdmin, acct.ID, "", ErrInviteNotPending, nil)
		return nil, ErrInviteNotPending
	}
	return acct, nil
}

func (e *Engine) sendInvite(ctx context.Context, acct *account.Account, tok tokens.Token, inviterName string) {
	e.send(ctx, notify.KindInvite, acct.Email, map[string]string{
		notify.DataLink: e.link(e.config.Links.InvitePath, url.Values{
			"token": {tok.Value},
			"email": {acct.Email},
		}),
		notify.DataName:      acct.Name,
		notify.DataInviter:   inviterName,
		notify.DataRole:      string(RoleAdmin),
		notify.DataExpiresIn: expiresIn(e.config.Invite.TTL),
	})
}

func (e *Engine) inviteFailed(ctx context.Context, userID string, err error, why string) error {
	e.metricInc(MetricInviteFailure)
	e.emitAudit(ctx, auditEventInviteFailure, false, RoleAdmin, userID, "", err, reason(why))
	return err
}

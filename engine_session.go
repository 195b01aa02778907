package clinicauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/tokens"
)

// ValidateSession resolves a session cookie value to its account. Each
// account holds at most one session; logging in again replaces it.
func (e *Engine) ValidateSession(ctx context.Context, role Role, token string) (*Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.metrics.LatencyEnabled() {
		start := e.now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, e.now().Sub(start))
		}()
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if token == "" {
		return nil, e.sessionRejected(ctx, role, "", ErrSessionNotFound)
	}

	acct, err := e.store.FindByToken(ctx, role, account.FieldSession, tokens.Hash(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, e.sessionRejected(ctx, role, "", ErrSessionNotFound)
		}
		return nil, storeError(err)
	}

	switch err := tokens.Check(acct.SessionToken, acct.SessionExpiresAt, token, e.now()); {
	case err == nil:
	case errors.Is(err, tokens.ErrTokenExpired):
		return nil, e.sessionRejected(ctx, role, acct.ID, ErrSessionExpired)
	default:
		return nil, e.sessionRejected(ctx, role, acct.ID, ErrSessionNotFound)
	}

	e.metricInc(MetricSessionValidated)
	return &Session{
		UserID:    acct.ID,
		Role:      acct.Role,
		Email:     acct.Email,
		Name:      acct.Name,
		ExpiresAt: acct.SessionExpiresAt,
	}, nil
}

// Logout revokes the session server-side. Unknown or already revoked tokens
// are not an error.
func (e *Engine) Logout(ctx context.Context, role Role, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if token == "" {
		return nil
	}

	acct, err := e.store.FindByToken(ctx, role, account.FieldSession, tokens.Hash(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		return storeError(err)
	}

	acct.ClearSession()
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, role, acct.ID, "", nil, nil)
	return nil
}

func (e *Engine) sessionRejected(ctx context.Context, role Role, userID string, err error) error {
	e.metricInc(MetricSessionRejected)
	e.emitAudit(ctx, auditEventSessionRejected, false, role, userID, "", err, nil)
	return err
}

package clinicauth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MrEthical07/clinicauth/account"
)

// CreateAccount provisions a doctor or patient. Admins are created through
// InviteAdmin. An empty Password creates a passwordless account that signs
// in by magic link.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*account.Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if req.Role != RoleDoctor && req.Role != RolePatient {
		e.emitAudit(ctx, auditEventAccountCreated, false, req.Role, "", "", ErrInvalidRole, reason("role_invalid"))
		return nil, ErrInvalidRole
	}
	email := account.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		e.emitAudit(ctx, auditEventAccountCreated, false, req.Role, "", "", ErrInvalidRequest, reason("email_invalid"))
		return nil, ErrInvalidRequest
	}

	acct := &account.Account{
		Role:       req.Role,
		Email:      email,
		Name:       strings.TrimSpace(req.Name),
		Attributes: req.Attributes,
	}
	if req.Password != "" {
		hash, err := e.hashPassword(req.Password)
		if err != nil {
			e.emitAudit(ctx, auditEventAccountCreated, false, req.Role, "", "", err, reason("password_policy"))
			return nil, err
		}
		acct.PasswordHash = hash
	}

	created, err := e.store.Create(ctx, acct)
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			e.emitAudit(ctx, auditEventAccountCreated, false, req.Role, "", "", ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		return nil, storeError(err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, created.Role, created.ID, "", nil, func() map[string]string {
		return map[string]string{
			"passwordless": strconv.FormatBool(!created.HasPassword()),
		}
	})
	return created, nil
}

// CreateFirstAdmin creates an active admin with a password, for bootstrapping
// an empty installation. Further admins are invited.
func (e *Engine) CreateFirstAdmin(ctx context.Context, name, email, password string) (*account.Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = account.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidRequest
	}
	hash, err := e.hashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := e.store.Create(ctx, &account.Account{
		Role:         RoleAdmin,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		InviteStatus: account.InviteActive,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, storeError(err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, RoleAdmin, created.ID, "", nil, reason("bootstrap"))
	return created, nil
}

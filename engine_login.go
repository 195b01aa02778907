package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
	"github.com/MrEthical07/clinicauth/internal/limiters"
	"github.com/MrEthical07/clinicauth/internal/rate"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
)

// LoginWithPassword verifies email and password for role.
//
// A recognized device gets a session right away. Any other device gets a
// one-time code by email and a result with RequiresOTP set. Accounts without
// a password return ErrPasswordlessAccount, after a magic link was sent when
// Login.MagicLinkFallback is on. Unknown emails and wrong passwords both
// return ErrInvalidCredentials.
func (e *Engine) LoginWithPassword(ctx context.Context, role Role, email, password string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	email = account.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)
	identifier := string(role) + ":" + email

	if err := e.loginLimiter.CheckLogin(ctx, identifier, ip); err != nil {
		return nil, e.loginLimited(ctx, role, identifier, err)
	}

	acct, err := e.store.FindByEmail(ctx, role, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, storeError(err)
		}
		return nil, e.loginFailed(ctx, role, "", identifier, ip, "user_not_found")
	}
	if acct.Pending() {
		return nil, e.loginFailed(ctx, role, acct.ID, identifier, ip, "invite_pending")
	}

	if !acct.HasPassword() {
		e.metricInc(MetricLoginPasswordless)
		if e.config.Login.MagicLinkFallback {
			if err := e.issueMagicLink(ctx, acct); err != nil {
				return nil, err
			}
		}
		e.emitAudit(ctx, auditEventLoginPasswordless, false, role, acct.ID, "", ErrPasswordlessAccount, func() map[string]string {
			return map[string]string{
				"magic_link_sent": strconv.FormatBool(e.config.Login.MagicLinkFallback),
			}
		})
		return nil, ErrPasswordlessAccount
	}

	ok, stale := e.hasher.Match(password, acct.PasswordHash)
	if !ok {
		return nil, e.loginFailed(ctx, role, acct.ID, identifier, ip, "password_mismatch")
	}

	if err := e.loginLimiter.ResetLogin(ctx, identifier); err != nil {
		e.warn("reset login counter for %s: %v", acct.ID, err)
	}
	e.upgradeHash(ctx, acct, password, stale)

	deviceID := device.Fingerprint(userAgentFromContext(ctx), ip)
	if !e.config.Login.RequireDeviceOTP || device.IsKnown(acct.Devices, deviceID) {
		return e.completeLogin(ctx, acct, deviceID)
	}

	return e.challengeOTP(ctx, acct, deviceID)
}

// VerifyOTPAndLogin checks the code sent by LoginWithPassword. On success the
// current device is remembered as trusted and a session is issued. Each code
// allows OTP.MaxVerifyAttempts wrong guesses; after that the code is discarded.
func (e *Engine) VerifyOTPAndLogin(ctx context.Context, role Role, userID, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if userID == "" {
		return nil, ErrOTPInvalid
	}

	if err := e.otpLimiter.CheckAttempts(ctx, string(role), userID); err != nil {
		return nil, e.otpLimited(ctx, role, userID, err)
	}

	acct, err := e.store.FindByID(ctx, role, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.metricInc(MetricOTPFailure)
			e.emitAudit(ctx, auditEventOTPFailure, false, role, userID, "", ErrOTPInvalid, reason("user_not_found"))
			return nil, ErrOTPInvalid
		}
		return nil, storeError(err)
	}

	switch err := tokens.Check(acct.OTPCode, acct.OTPExpiresAt, code, e.now()); {
	case err == nil:
	case errors.Is(err, tokens.ErrTokenExpired):
		// The expired digest stays so ResendOTP can still replace it.
		e.metricInc(MetricOTPExpired)
		e.emitAudit(ctx, auditEventOTPFailure, false, role, acct.ID, "", ErrOTPExpired, reason("otp_expired"))
		return nil, ErrOTPExpired
	case errors.Is(err, tokens.ErrTokenNotFound):
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, auditEventOTPFailure, false, role, acct.ID, "", ErrOTPInvalid, reason("otp_absent"))
		return nil, ErrOTPInvalid
	default:
		return nil, e.otpMismatch(ctx, acct)
	}

	acct.ClearOTP()
	deviceID := device.Fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))

	if err := e.otpLimiter.Reset(ctx, string(role), acct.ID); err != nil {
		e.warn("reset otp counters for %s: %v", acct.ID, err)
	}

	e.metricInc(MetricOTPSuccess)
	e.metricInc(MetricDeviceTrusted)
	e.emitAudit(ctx, auditEventOTPSuccess, true, role, acct.ID, deviceID, nil, nil)
	e.emitAudit(ctx, auditEventDeviceTrusted, true, role, acct.ID, deviceID, nil, nil)

	return e.completeLogin(ctx, acct, deviceID)
}

// ResendOTP replaces the outstanding code with a fresh one and sends it
// again. It is allowed once per OTP.ResendCooldown and only while a login is
// waiting on a code, including one whose code has expired.
func (e *Engine) ResendOTP(ctx context.Context, role Role, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if userID == "" {
		return ErrOTPInvalid
	}

	acct, err := e.store.FindByID(ctx, role, userID)
	if err != nil {
		return lookupError(err, ErrOTPInvalid)
	}
	if acct.OTPCode == "" {
		e.emitAudit(ctx, auditEventOTPResent, false, role, acct.ID, "", ErrOTPInvalid, reason("otp_absent"))
		return ErrOTPInvalid
	}

	if err := e.otpLimiter.AcquireResend(ctx, string(role), acct.ID); err != nil {
		return e.otpLimited(ctx, role, acct.ID, err)
	}

	if err := e.sendOTP(ctx, acct); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventOTPResent, true, role, acct.ID, "", nil, nil)
	return nil
}

func (e *Engine) challengeOTP(ctx context.Context, acct *account.Account, deviceID string) (*LoginResult, error) {
	if err := e.sendOTP(ctx, acct); err != nil {
		return nil, err
	}
	if err := e.otpLimiter.MarkIssued(ctx, string(acct.Role), acct.ID); err != nil {
		e.warn("mark otp issued for %s: %v", acct.ID, err)
	}

	e.metricInc(MetricOTPRequired)
	e.emitAudit(ctx, auditEventOTPRequired, true, acct.Role, acct.ID, deviceID, nil, nil)

	return &LoginResult{
		UserID:      acct.ID,
		Role:        acct.Role,
		RequiresOTP: true,
		DeviceID:    deviceID,
	}, nil
}

// sendOTP mints a code, persists its digest and sends the plain code.
func (e *Engine) sendOTP(ctx context.Context, acct *account.Account) error {
	tok, err := e.issuer.OTP()
	if err != nil {
		return tokenError(err)
	}
	acct.OTPCode = tok.Hash
	acct.OTPExpiresAt = tok.ExpiresAt
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.send(ctx, notify.KindOTP, acct.Email, map[string]string{
		notify.DataCode:      tok.Value,
		notify.DataName:      acct.Name,
		notify.DataRole:      string(acct.Role),
		notify.DataExpiresIn: expiresIn(e.config.OTP.TTL),
	})
	e.metricInc(MetricOTPSent)
	return nil
}

// completeLogin issues a session for acct and persists every pending change
// on it. A non-empty deviceID marks that device as just used.
func (e *Engine) completeLogin(ctx context.Context, acct *account.Account, deviceID string) (*LoginResult, error) {
	tok, err := e.issuer.Session()
	if err != nil {
		return nil, tokenError(err)
	}
	if deviceID != "" {
		acct.Devices = device.Remember(acct.Devices, deviceID, userAgentFromContext(ctx), clientIPFromContext(ctx), e.now().UTC())
	}
	acct.SessionToken = tok.Hash
	acct.SessionExpiresAt = tok.ExpiresAt

	if err := e.save(ctx, acct); err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.Role, acct.ID, deviceID, nil, nil)

	return &LoginResult{
		UserID:           acct.ID,
		Role:             acct.Role,
		SessionToken:     tok.Value,
		SessionExpiresAt: tok.ExpiresAt,
		DeviceID:         deviceID,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, role Role, userID, identifier, ip, why string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, role, userID, "", ErrInvalidCredentials, reason(why))

	if err := e.loginLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return e.loginLimited(ctx, role, identifier, err)
		}
		e.warn("count failed login: %v", err)
	}
	return ErrInvalidCredentials
}

func (e *Engine) loginLimited(ctx context.Context, role Role, identifier string, err error) error {
	if !errors.Is(err, rate.ErrRateLimited) {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, role, "", "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	e.emitRateLimit(ctx, "login", role, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	return ErrLoginRateLimited
}

func (e *Engine) otpMismatch(ctx context.Context, acct *account.Account) error {
	e.metricInc(MetricOTPFailure)
	e.emitAudit(ctx, auditEventOTPFailure, false, acct.Role, acct.ID, "", ErrOTPInvalid, reason("otp_mismatch"))

	err := e.otpLimiter.RecordFailure(ctx, string(acct.Role), acct.ID)
	if err == nil {
		return ErrOTPInvalid
	}
	if !errors.Is(err, limiters.ErrOTPAttemptsExceeded) {
		e.warn("count failed otp for %s: %v", acct.ID, err)
		return ErrOTPInvalid
	}

	acct.ClearOTP()
	if err := e.save(ctx, acct); err != nil {
		return err
	}
	return e.otpLimited(ctx, acct.Role, acct.ID, limiters.ErrOTPAttemptsExceeded)
}

func (e *Engine) otpLimited(ctx context.Context, role Role, userID string, err error) error {
	switch {
	case errors.Is(err, limiters.ErrOTPResendCooldown):
		e.metricInc(MetricOTPResendCooldown)
		e.emitRateLimit(ctx, "otp_resend", role, nil)
		e.emitAudit(ctx, auditEventOTPResent, false, role, userID, "", ErrOTPResendCooldown, nil)
		return ErrOTPResendCooldown
	case errors.Is(err, limiters.ErrOTPAttemptsExceeded):
		e.metricInc(MetricOTPAttemptsExceeded)
		e.emitRateLimit(ctx, "otp_verify", role, nil)
		e.emitAudit(ctx, auditEventOTPAttemptsExceeded, false, role, userID, "", ErrOTPAttemptsExceeded, nil)
		return ErrOTPAttemptsExceeded
	default:
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
}

package clinicauth

import "time"

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	SessionTTL           time.Duration
	OTPTTL               time.Duration
	OTPDigits            int
	MagicLinkTTL         time.Duration
	PasswordResetTTL     time.Duration
	InviteTTL            time.Duration
	Scrypt               PasswordConfigReport
	DeviceOTPRequired    bool
	MagicLinkFallback    bool
	LoginRateLimiting    bool
	LoginIPThrottle      bool
	ResetIPThrottle      bool
	ResetIdentifierLimit bool
	RehashOnLogin        bool
	AuditEnabled         bool
	AsyncNotifications   bool
}

type PasswordConfigReport struct {
	N          int
	R          int
	P          int
	SaltLength int
	KeyLength  int
	MinLength  int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	c := e.config
	return SecurityReport{
		SessionTTL:       c.Session.TTL,
		OTPTTL:           c.OTP.TTL,
		OTPDigits:        c.OTP.Digits,
		MagicLinkTTL:     c.MagicLink.TTL,
		PasswordResetTTL: c.PasswordReset.TTL,
		InviteTTL:        c.Invite.TTL,
		Scrypt: PasswordConfigReport{
			N:          c.Password.N,
			R:          c.Password.R,
			P:          c.Password.P,
			SaltLength: c.Password.SaltLength,
			KeyLength:  c.Password.KeyLength,
			MinLength:  c.Password.MinLength,
		},
		DeviceOTPRequired:    c.Login.RequireDeviceOTP,
		MagicLinkFallback:    c.Login.MagicLinkFallback,
		LoginRateLimiting:    c.Limits.MaxLoginAttempts > 0 && c.Limits.LoginCooldownDuration > 0,
		LoginIPThrottle:      c.Limits.EnableIPThrottle,
		ResetIPThrottle:      c.PasswordReset.EnableIPThrottle,
		ResetIdentifierLimit: c.PasswordReset.EnableIdentifierThrottle,
		RehashOnLogin:        c.Password.UpgradeOnLogin,
		AuditEnabled:         c.Audit.Enabled,
		AsyncNotifications:   c.Notify.Async,
	}
}

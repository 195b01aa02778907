package clinicauth

import (
	"errors"
	"net/url"
	"time"

	"github.com/MrEthical07/clinicauth/password"
)

// Config groups every tunable of the Engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Session       SessionConfig
	OTP           OTPConfig
	MagicLink     MagicLinkConfig
	PasswordReset PasswordResetConfig
	Invite        InviteConfig
	Password      PasswordConfig
	Login         LoginConfig
	Links         LinksConfig
	Notify        NotifyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Limits        LimitsConfig
}

/*
====================================
CREDENTIAL LIFETIMES
====================================
*/

// SessionConfig controls session token lifetime.
type SessionConfig struct {
	TTL time.Duration
}

// OTPConfig controls one-time codes sent to unrecognized devices.
type OTPConfig struct {
	TTL               time.Duration
	Digits            int
	MaxVerifyAttempts int
	ResendCooldown    time.Duration
}

// MagicLinkConfig controls passwordless sign-in links.
type MagicLinkConfig struct {
	TTL time.Duration
}

// PasswordResetConfig controls reset tokens and request throttling.
type PasswordResetConfig struct {
	TTL                      time.Duration
	MaxAttempts              int
	Window                   time.Duration
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool
}

// InviteConfig controls admin invite tokens.
type InviteConfig struct {
	TTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds scrypt cost parameters and the password policy.
//
// Stored hashes do not record N, R or P. Before changing them, add the
// previous values to LegacyCosts or existing passwords stop verifying.
type PasswordConfig struct {
	N              int
	R              int
	P              int
	SaltLength     int
	KeyLength      int
	LegacyCosts    []password.Cost
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls the password login step.
type LoginConfig struct {
	// MagicLinkFallback sends a magic link when a password login targets an
	// account without a password.
	MagicLinkFallback bool
	// RequireDeviceOTP challenges logins from unrecognized devices.
	RequireDeviceOTP bool
}

// LimitsConfig controls failed-login throttling.
type LimitsConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
}

/*
====================================
LINKS & DELIVERY
====================================
*/

// LinksConfig builds the URLs embedded in outgoing messages.
type LinksConfig struct {
	BaseURL       string
	MagicLinkPath string
	InvitePath    string
	ResetPath     string
}

// NotifyConfig controls the outgoing message dispatcher.
type NotifyConfig struct {
	Async       bool
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
}

/*
====================================
OBSERVABILITY
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	hasher := password.DefaultConfig()
	return Config{
		Session: SessionConfig{
			TTL: 7 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			TTL:               10 * time.Minute,
			Digits:            6,
			MaxVerifyAttempts: 5,
			ResendCooldown:    30 * time.Second,
		},
		MagicLink: MagicLinkConfig{
			TTL: 15 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TTL:                      time.Hour,
			MaxAttempts:              5,
			Window:                   15 * time.Minute,
			EnableIPThrottle:         true,
			EnableIdentifierThrottle: true,
		},
		Invite: InviteConfig{
			TTL: 72 * time.Hour,
		},
		Password: PasswordConfig{
			N:              hasher.N,
			R:              hasher.R,
			P:              hasher.P,
			SaltLength:     hasher.SaltLength,
			KeyLength:      hasher.KeyLength,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Login: LoginConfig{
			MagicLinkFallback: true,
			RequireDeviceOTP:  true,
		},
		Limits: LimitsConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
		},
		Links: LinksConfig{
			BaseURL:       "http://localhost:3000",
			MagicLinkPath: "/auth/magic-link",
			InvitePath:    "/admin/accept-invite",
			ResetPath:     "/auth/reset-password",
		},
		Notify: NotifyConfig{
			Async:       true,
			BufferSize:  256,
			DropIfFull:  false,
			SendTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	cfg.Password.LegacyCosts = append([]password.Cost(nil), cfg.Password.LegacyCosts...)
	return cfg
}

func (c *Config) hasherConfig() password.Config {
	return password.Config{
		N:          c.Password.N,
		R:          c.Password.R,
		P:          c.Password.P,
		SaltLength: c.Password.SaltLength,
		KeyLength:  c.Password.KeyLength,
		Legacy:     c.Password.LegacyCosts,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.MaxVerifyAttempts <= 0 {
		return errors.New("OTP MaxVerifyAttempts must be > 0")
	}
	if c.OTP.ResendCooldown < 0 {
		return errors.New("OTP ResendCooldown must be >= 0")
	}
	if c.OTP.ResendCooldown >= c.OTP.TTL {
		return errors.New("OTP ResendCooldown must be shorter than OTP TTL")
	}

	if c.MagicLink.TTL <= 0 {
		return errors.New("MagicLink TTL must be > 0")
	}
	if c.Invite.TTL <= 0 {
		return errors.New("Invite TTL must be > 0")
	}

	// Password Reset
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}
	if c.PasswordReset.Window <= 0 {
		return errors.New("PasswordReset Window must be > 0")
	}

	// Password
	if _, err := password.NewScrypt(c.hasherConfig()); err != nil {
		return err
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Login throttling
	if c.Limits.MaxLoginAttempts < 0 {
		return errors.New("Limits MaxLoginAttempts must be >= 0")
	}
	if c.Limits.MaxLoginAttempts > 0 && c.Limits.LoginCooldownDuration <= 0 {
		return errors.New("Limits LoginCooldownDuration must be > 0 when MaxLoginAttempts is set")
	}

	// Links
	base, err := url.Parse(c.Links.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return errors.New("Links BaseURL must be an absolute URL")
	}
	if c.Links.MagicLinkPath == "" || c.Links.InvitePath == "" || c.Links.ResetPath == "" {
		return errors.New("Links paths must be non-empty")
	}

	// Notify
	if c.Notify.Async && c.Notify.BufferSize <= 0 {
		return errors.New("Notify BufferSize must be > 0 when Async is true")
	}
	if c.Notify.SendTimeout < 0 {
		return errors.New("Notify SendTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

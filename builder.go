package clinicauth

import (
	"errors"
	"log"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/audit"
	"github.com/MrEthical07/clinicauth/internal/limiters"
	"github.com/MrEthical07/clinicauth/internal/rate"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder wires an Engine's collaborators. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     account.Store
	sender    notify.Sender
	auditSink AuditSink
	clock     func() time.Time
	logger    *log.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the login, OTP and password reset limiters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccountStore(store account.Store) *Builder {
	b.store = store
	return b
}

// WithNotifier sets where OTP codes and links are delivered. Without one,
// messages are discarded.
func (b *Builder) WithNotifier(sender notify.Sender) *Builder {
	b.sender = sender
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for credential expiry. Redis counter windows
// still follow the server clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithLogger sets the logger used for warnings that never fail a request,
// such as undeliverable notifications.
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewScrypt(cfg.hasherConfig())
	if err != nil {
		return nil, err
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	engine := &Engine{
		config: cfg,
		redis:  b.redis,
		store:  b.store,
		hasher: hasher,
		now:    now,
		logger: logger,
	}

	engine.issuer = tokens.NewIssuer(tokens.Config{
		SessionTTL:   cfg.Session.TTL,
		OTPTTL:       cfg.OTP.TTL,
		MagicLinkTTL: cfg.MagicLink.TTL,
		ResetTTL:     cfg.PasswordReset.TTL,
		InviteTTL:    cfg.Invite.TTL,
		OTPDigits:    cfg.OTP.Digits,
	}, now)

	engine.loginLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Limits.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Limits.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Limits.LoginCooldownDuration,
	})
	engine.otpLimiter = limiters.NewOTPLimiter(b.redis, limiters.OTPConfig{
		MaxAttempts:    cfg.OTP.MaxVerifyAttempts,
		ResendCooldown: cfg.OTP.ResendCooldown,
		Window:         cfg.OTP.TTL,
	})
	engine.resetLimiter = limiters.NewPasswordResetLimiter(b.redis, limiters.PasswordResetConfig{
		EnableIdentifierThrottle: cfg.PasswordReset.EnableIdentifierThrottle,
		EnableIPThrottle:         cfg.PasswordReset.EnableIPThrottle,
		Window:                   cfg.PasswordReset.Window,
		MaxAttempts:              cfg.PasswordReset.MaxAttempts,
	})

	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.notifier = notify.NewDispatcher(notify.Config{
		Async:       cfg.Notify.Async,
		BufferSize:  cfg.Notify.BufferSize,
		DropIfFull:  cfg.Notify.DropIfFull,
		SendTimeout: cfg.Notify.SendTimeout,
	}, b.sender, engine.notifyFailed)

	b.built = true

	return engine, nil
}

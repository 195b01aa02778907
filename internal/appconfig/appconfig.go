package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/httpapi"
	"github.com/MrEthical07/clinicauth/jwt"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/store/pgstore"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Duration decodes YAML strings such as "15m" or "72h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the decoded configuration file.
type Config struct {
	Listen    string          `yaml:"listen"`
	Store     string          `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Links     LinksConfig     `yaml:"links"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	HTTP      HTTPConfig      `yaml:"http"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Auth      AuthConfig      `yaml:"auth"`
	Audit     ToggleConfig    `yaml:"audit"`
	Metrics   ToggleConfig    `yaml:"metrics"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type DatabaseConfig struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

type LinksConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SMTPConfig selects SMTP delivery when Host is set. Otherwise messages are
// written to stdout as JSON lines.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type HTTPConfig struct {
	CookieSecure      bool    `yaml:"cookie_secure"`
	CookieDomain      string  `yaml:"cookie_domain"`
	TrustForwardedFor bool    `yaml:"trust_forwarded_for"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ChallengeConfig signs the pending OTP cookie. TTL should exceed the OTP
// lifetime so a user whose code expired can still ask for a new one.
type ChallengeConfig struct {
	Secret string   `yaml:"secret"`
	TTL    Duration `yaml:"ttl"`
}

// AuthConfig overrides engine lifetimes. Zero values keep the engine defaults.
type AuthConfig struct {
	SessionTTL        Duration `yaml:"session_ttl"`
	OTPTTL            Duration `yaml:"otp_ttl"`
	MagicLinkTTL      Duration `yaml:"magic_link_ttl"`
	PasswordResetTTL  Duration `yaml:"password_reset_ttl"`
	InviteTTL         Duration `yaml:"invite_ttl"`
	MaxLoginAttempts  int      `yaml:"max_login_attempts"`
	RequireDeviceOTP  *bool    `yaml:"require_device_otp"`
	MagicLinkFallback *bool    `yaml:"magic_link_fallback"`
}

type ToggleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns settings suitable for local development.
func Default() Config {
	api := httpapi.DefaultConfig()
	return Config{
		Listen: ":8080",
		Store:  StorePostgres,
		Redis: RedisConfig{
			URL:    "redis://localhost:6379/0",
			Prefix: "clinicauth",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
		},
		Links: LinksConfig{
			BaseURL: clinicauth.DefaultConfig().Links.BaseURL,
		},
		SMTP: SMTPConfig{Port: 587},
		HTTP: HTTPConfig{
			CookieSecure:      api.CookieSecure,
			RequestsPerSecond: api.RequestsPerSecond,
			Burst:             api.Burst,
		},
		Challenge: ChallengeConfig{
			TTL: Duration(3 * clinicauth.DefaultConfig().OTP.TTL),
		},
	}
}

// Load reads path (if non-empty), then the first existing env file, then the
// environment. Missing env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Listen, "CLINICAUTH_LISTEN")
	setString(&c.Store, "CLINICAUTH_STORE")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Links.BaseURL, "CLINICAUTH_BASE_URL")
	setString(&c.Challenge.Secret, "CLINICAUTH_CHALLENGE_SECRET")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.SMTP.From, "SMTP_FROM")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("CLINICAUTH_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CLINICAUTH_COOKIE_SECURE: %w", err)
		}
		c.HTTP.CookieSecure = secure
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks the settings the binaries cannot start without.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.Database.DSN == "" {
			return errors.New("database dsn is required for the postgres store")
		}
	case StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Redis.URL == "" {
		return errors.New("redis url is required")
	}
	if len(c.Challenge.Secret) < 32 {
		return errors.New("challenge secret must be at least 32 bytes")
	}
	if c.Challenge.TTL <= 0 {
		return errors.New("challenge ttl must be > 0")
	}
	return nil
}

// Engine maps the file onto clinicauth.DefaultConfig.
func (c *Config) Engine() clinicauth.Config {
	cfg := clinicauth.DefaultConfig()
	cfg.Links.BaseURL = c.Links.BaseURL
	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled

	a := c.Auth
	if a.SessionTTL > 0 {
		cfg.Session.TTL = a.SessionTTL.Std()
	}
	if a.OTPTTL > 0 {
		cfg.OTP.TTL = a.OTPTTL.Std()
	}
	if a.MagicLinkTTL > 0 {
		cfg.MagicLink.TTL = a.MagicLinkTTL.Std()
	}
	if a.PasswordResetTTL > 0 {
		cfg.PasswordReset.TTL = a.PasswordResetTTL.Std()
	}
	if a.InviteTTL > 0 {
		cfg.Invite.TTL = a.InviteTTL.Std()
	}
	if a.MaxLoginAttempts > 0 {
		cfg.Limits.MaxLoginAttempts = a.MaxLoginAttempts
	}
	if a.RequireDeviceOTP != nil {
		cfg.Login.RequireDeviceOTP = *a.RequireDeviceOTP
	}
	if a.MagicLinkFallback != nil {
		cfg.Login.MagicLinkFallback = *a.MagicLinkFallback
	}
	return cfg
}

func (c *Config) API() httpapi.Config {
	cfg := httpapi.DefaultConfig()
	cfg.CookieSecure = c.HTTP.CookieSecure
	cfg.CookieDomain = c.HTTP.CookieDomain
	cfg.TrustForwardedFor = c.HTTP.TrustForwardedFor
	cfg.RequestsPerSecond = c.HTTP.RequestsPerSecond
	cfg.Burst = c.HTTP.Burst
	return cfg
}

func (c *Config) Challenges() jwt.Config {
	return jwt.Config{
		TTL:           c.Challenge.TTL.Std(),
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(c.Challenge.Secret),
		Issuer:        "clinicauth",
	}
}

func (c *Config) Postgres() pgstore.Config {
	return pgstore.Config{
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime.Std(),
	}
}

func (c *Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return opts, nil
}

// Mailer reports whether SMTP delivery is configured and returns its settings.
func (c *Config) Mailer() (notify.SMTPConfig, bool) {
	if c.SMTP.Host == "" {
		return notify.SMTPConfig{}, false
	}
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	}, true
}

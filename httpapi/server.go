package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/jwt"
)

// Config controls the HTTP surface.
type Config struct {
	// CookieSecure sets the Secure attribute on every cookie.
	CookieSecure bool
	CookieDomain string
	// TrustForwardedFor takes the client IP from the first X-Forwarded-For
	// entry. Enable only behind a proxy that sets it.
	TrustForwardedFor bool
	// RequestsPerSecond and Burst size the per-IP token bucket on /auth.
	// Zero RequestsPerSecond disables it.
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

func DefaultConfig() Config {
	return Config{
		CookieSecure:      true,
		RequestsPerSecond: 5,
		Burst:             20,
		MaxBodyBytes:      1 << 16,
	}
}

// Server holds the collaborators shared by all handlers.
type Server struct {
	engine     *clinicauth.Engine
	challenges *jwt.ChallengeManager
	cfg        Config
	limiter    *ipLimiter
	metrics    http.Handler
	logger     *log.Logger
	now        func() time.Time

	// magicLinkFallback mirrors the engine's Login.MagicLinkFallback.
	magicLinkFallback bool
}

func New(engine *clinicauth.Engine, challenges *jwt.ChallengeManager, cfg Config) *Server {
	s := &Server{
		engine:     engine,
		challenges: challenges,
		cfg:        cfg,
		logger:     log.Default(),
		now:        time.Now,

		magicLinkFallback: engine.SecurityReport().MagicLinkFallback,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = newIPLimiter(cfg.RequestsPerSecond, cfg.Burst, s.now)
	}
	return s
}

// WithMetricsHandler serves h at GET /metrics.
func (s *Server) WithMetricsHandler(h http.Handler) *Server {
	s.metrics = h
	return s
}

func (s *Server) WithLogger(logger *log.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

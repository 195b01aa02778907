package httpapi

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/middleware"
)

type roleContextKey struct{}

// Routes returns the router for every auth operation.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.clientContext)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.limitIP)

		r.Route("/admin/invites", func(r chi.Router) {
			r.Get("/validate", s.handleValidateInvite)
			r.Post("/accept", s.handleAcceptInvite)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(s.engine))
				r.Post("/", s.handleCreateInvite)
				r.Post("/{adminID}/resend", s.handleResendInvite)
				r.Delete("/{adminID}", s.handleDeleteInvite)
			})
		})
		r.With(middleware.RequireAdmin(s.engine)).Post("/admin/accounts", s.handleCreateAccount)

		r.Route("/{role}", func(r chi.Router) {
			r.Use(withRole)

			r.Post("/login", s.handleLogin)
			r.Post("/otp/verify", s.handleVerifyOTP)
			r.Post("/otp/resend", s.handleResendOTP)
			r.Post("/magic-link", s.handleSendMagicLink)
			r.Get("/magic-link/verify", s.handleVerifyMagicLink)
			r.Post("/logout", s.handleLogout)
			r.Post("/password/forgot", s.handleForgotPassword)
			r.Post("/password/reset", s.handleResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)
				r.Get("/me", s.handleMe)
				r.Get("/devices", s.handleListDevices)
				r.Delete("/devices/{deviceID}", s.handleForgetDevice)
			})
		})
	})

	return r
}

func withRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, err := account.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleContextKey{}, role)))
	})
}

func roleFrom(r *http.Request) clinicauth.Role {
	role, _ := r.Context().Value(roleContextKey{}).(clinicauth.Role)
	return role
}

// requireSession applies the session guard for the role in the path.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.Guard(s.engine, roleFrom(r))(next).ServeHTTP(w, r)
	})
}

// clientContext hands the caller's IP and User-Agent to the engine for device
// fingerprinting and throttling.
func (s *Server) clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := clinicauth.WithClientIP(r.Context(), s.clientIP(r))
		ctx = clinicauth.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) clientIP(r *http.Request) string {
	if s.cfg.TrustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return addr.Unmap().String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return host
}

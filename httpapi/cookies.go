package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/middleware"
)

// ChallengeCookie carries the signed pending-OTP challenge.
const ChallengeCookie = "otp_challenge"

func (s *Server) setCookie(w http.ResponseWriter, name, value, path string, expires time.Time) {
	maxAge := int(expires.Sub(s.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.cfg.CookieDomain,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   s.cfg.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, res *clinicauth.LoginResult) {
	s.setCookie(w, middleware.CookieName(res.Role), res.SessionToken, "/", res.SessionExpiresAt)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, role clinicauth.Role) {
	s.clearCookie(w, middleware.CookieName(role), "/")
}

func (s *Server) setChallengeCookie(w http.ResponseWriter, token string, expires time.Time) {
	s.setCookie(w, ChallengeCookie, token, "/auth", expires)
}

func (s *Server) clearChallengeCookie(w http.ResponseWriter) {
	s.clearCookie(w, ChallengeCookie, "/auth")
}

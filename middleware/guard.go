package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/clinicauth"
)

// Session cookie names. Doctors use the undifferentiated "session" cookie.
const (
	AdminCookie   = "admin_session"
	DoctorCookie  = "session"
	PatientCookie = "patient_session"
)

type sessionContextKey struct{}

// CookieName returns the session cookie that carries role's token.
func CookieName(role clinicauth.Role) string {
	switch role {
	case clinicauth.RoleAdmin:
		return AdminCookie
	case clinicauth.RolePatient:
		return PatientCookie
	default:
		return DoctorCookie
	}
}

func SessionFromContext(ctx context.Context) (*clinicauth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*clinicauth.Session)
	return sess, ok
}

// WithSession attaches sess to ctx the way Guard does.
func WithSession(ctx context.Context, sess *clinicauth.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionToken returns the session cookie value for role, if present.
func SessionToken(r *http.Request, role clinicauth.Role) (string, bool) {
	c, err := r.Cookie(CookieName(role))
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Guard rejects requests without a valid session cookie for role.
func Guard(engine *clinicauth.Engine, role clinicauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := SessionToken(r, role)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := engine.ValidateSession(r.Context(), role, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func RequireAdmin(engine *clinicauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, clinicauth.RoleAdmin)
}

func RequireDoctor(engine *clinicauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, clinicauth.RoleDoctor)
}

func RequirePatient(engine *clinicauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, clinicauth.RolePatient)
}

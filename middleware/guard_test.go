package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/store/redisstore"
)

const testPassword = "correct-horse-battery"

func newGuardEngine(t *testing.T) *clinicauth.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := clinicauth.DefaultConfig()
	cfg.Password.N = 1024
	cfg.Notify.Async = false
	cfg.Login.RequireDeviceOTP = false

	engine, err := clinicauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(redisstore.New(rdb, "guard")).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine
}

func loginDoctor(t *testing.T, engine *clinicauth.Engine) string {
	t.Helper()

	ctx := context.Background()
	_, err := engine.CreateAccount(ctx, clinicauth.CreateAccountRequest{
		Role:     clinicauth.RoleDoctor,
		Email:    "doc@clinic.example",
		Name:     "Dr Guard",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	res, err := engine.LoginWithPassword(ctx, clinicauth.RoleDoctor, "doc@clinic.example", testPassword)
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if res.SessionToken == "" {
		t.Fatalf("expected a session token")
	}
	return res.SessionToken
}

func TestCookieName(t *testing.T) {
	tests := map[clinicauth.Role]string{
		clinicauth.RoleAdmin:   AdminCookie,
		clinicauth.RoleDoctor:  DoctorCookie,
		clinicauth.RolePatient: PatientCookie,
	}
	for role, want := range tests {
		if got := CookieName(role); got != want {
			t.Fatalf("CookieName(%s) = %q, want %q", role, got, want)
		}
	}
}

func TestGuardAttachesSession(t *testing.T) {
	engine := newGuardEngine(t)
	token := loginDoctor(t, engine)

	var seen *clinicauth.Session
	h := RequireDoctor(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: DoctorCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen == nil || seen.Email != "doc@clinic.example" || seen.Role != clinicauth.RoleDoctor {
		t.Fatalf("unexpected session %+v", seen)
	}
}

func TestGuardRejects(t *testing.T) {
	engine := newGuardEngine(t)
	token := loginDoctor(t, engine)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	tests := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		cookie *http.Cookie
	}{
		{"no cookie", RequireDoctor(engine), nil},
		{"unknown token", RequireDoctor(engine), &http.Cookie{Name: DoctorCookie, Value: "nope"}},
		{"wrong cookie for role", RequirePatient(engine), &http.Cookie{Name: DoctorCookie, Value: token}},
		{"token under another role", RequireAdmin(engine), &http.Cookie{Name: AdminCookie, Value: token}},
		{"nil engine", Guard(nil, clinicauth.RoleDoctor), &http.Cookie{Name: DoctorCookie, Value: token}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			tt.guard(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestSessionTokenIgnoresEmptyCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: PatientCookie, Value: ""})
	if _, ok := SessionToken(req, clinicauth.RolePatient); ok {
		t.Fatal("expected empty cookie to be ignored")
	}
}

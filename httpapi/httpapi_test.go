package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/device"
	"github.com/MrEthical07/clinicauth/jwt"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/store/redisstore"
)

const testPassword = "correct-horse-battery"

type apiEnv struct {
	engine *clinicauth.Engine
	mr     *miniredis.Miniredis
	sent   *notify.Recorder
	srv    *httptest.Server
}

func newAPIEnv(t *testing.T, mutate func(*Config)) *apiEnv {
	t.Helper()
	return newAPIEnvWithEngine(t, nil, mutate)
}

func newAPIEnvWithEngine(t *testing.T, mutateEngine func(*clinicauth.Config), mutate func(*Config)) *apiEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := clinicauth.DefaultConfig()
	cfg.Password.N = 1024
	cfg.Notify.Async = false
	cfg.Links.BaseURL = "https://clinic.example"
	if mutateEngine != nil {
		mutateEngine(&cfg)
	}

	sent := &notify.Recorder{}
	engine, err := clinicauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(redisstore.New(rdb, "api")).
		WithNotifier(sent).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	challenges, err := jwt.NewChallengeManager(jwt.Config{
		TTL:           30 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    bytes.Repeat([]byte("k"), 32),
	})
	if err != nil {
		t.Fatalf("NewChallengeManager failed: %v", err)
	}

	apiCfg := DefaultConfig()
	apiCfg.CookieSecure = false
	apiCfg.RequestsPerSecond = 0
	if mutate != nil {
		mutate(&apiCfg)
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "clinicauth_login_success_total 0\n")
	})
	srv := httptest.NewServer(New(engine, challenges, apiCfg).WithMetricsHandler(metrics).Routes())

	env := &apiEnv{engine: engine, mr: mr, sent: sent, srv: srv}
	t.Cleanup(func() {
		srv.Close()
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

func (env *apiEnv) client(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}
	return &http.Client{Jar: jar}
}

func (env *apiEnv) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return resp, out
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d (%s)", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("Unmarshal %q failed: %v", body, err)
	}
	return v
}

func (env *apiEnv) lastLink(t *testing.T, kind notify.Kind, to, key string) string {
	t.Helper()

	msg, ok := env.sent.Last(kind, to)
	if !ok {
		t.Fatalf("expected a %s message to %s", kind, to)
	}
	u, err := url.Parse(msg.Data[notify.DataLink])
	if err != nil {
		t.Fatalf("invalid link: %v", err)
	}
	return u.Query().Get(key)
}

// loginWithOTP runs the password step and, when challenged, the code step.
func (env *apiEnv) loginWithOTP(t *testing.T, c *http.Client, role clinicauth.Role, email string) {
	t.Helper()

	base := "/auth/" + string(role)
	resp, body := env.do(t, c, http.MethodPost, base+"/login", loginRequest{Email: email, Password: testPassword})
	expectStatus(t, resp, body, http.StatusOK)
	if !decodeBody[loginResponse](t, body).RequiresOTP {
		return
	}

	msg, ok := env.sent.Last(notify.KindOTP, email)
	if !ok {
		t.Fatalf("expected an OTP for %s", email)
	}
	resp, body = env.do(t, c, http.MethodPost, base+"/otp/verify", otpVerifyRequest{Code: msg.Data[notify.DataCode]})
	expectStatus(t, resp, body, http.StatusOK)
}

func (env *apiEnv) createDoctor(t *testing.T, email string) {
	t.Helper()
	_, err := env.engine.CreateAccount(context.Background(), clinicauth.CreateAccountRequest{
		Role:     clinicauth.RoleDoctor,
		Email:    email,
		Name:     "Dr Test",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
}

func TestLoginOTPSessionLifecycle(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/login", loginRequest{Email: "doc@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusOK)
	if !decodeBody[loginResponse](t, body).RequiresOTP {
		t.Fatalf("expected first login to require OTP: %s", body)
	}
	var challenged bool
	for _, ck := range resp.Cookies() {
		if ck.Name == ChallengeCookie && ck.HttpOnly {
			challenged = true
		}
	}
	if !challenged {
		t.Fatalf("expected httpOnly %s cookie", ChallengeCookie)
	}

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/otp/verify", otpVerifyRequest{Code: "000000x"})
	expectStatus(t, resp, body, http.StatusUnauthorized)

	msg, _ := env.sent.Last(notify.KindOTP, "doc@clinic.example")
	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/otp/verify", otpVerifyRequest{Code: msg.Data[notify.DataCode]})
	expectStatus(t, resp, body, http.StatusOK)
	if got := decodeBody[loginResponse](t, body); got.UserID == "" || got.ExpiresAt == nil {
		t.Fatalf("expected session details, got %s", body)
	}

	resp, body = env.do(t, c, http.MethodGet, "/auth/doctor/me", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if me := decodeBody[sessionResponse](t, body); me.Email != "doc@clinic.example" || me.Role != "doctor" {
		t.Fatalf("unexpected session %+v", me)
	}

	resp, body = env.do(t, c, http.MethodGet, "/auth/doctor/devices", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if devices := decodeBody[[]device.Device](t, body); len(devices) != 1 || devices[0].UserAgent == "" {
		t.Fatalf("expected one labelled device, got %s", body)
	}

	// The device is now trusted.
	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/login", loginRequest{Email: "doc@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusOK)
	if decodeBody[loginResponse](t, body).RequiresOTP {
		t.Fatalf("expected trusted device to skip OTP")
	}

	resp, body = env.do(t, c, http.MethodGet, "/auth/patient/me", nil)
	expectStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/logout", nil)
	expectStatus(t, resp, body, http.StatusNoContent)

	resp, body = env.do(t, c, http.MethodGet, "/auth/doctor/me", nil)
	expectStatus(t, resp, body, http.StatusUnauthorized)
}

func TestForgetDeviceRoute(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)
	env.loginWithOTP(t, c, clinicauth.RoleDoctor, "doc@clinic.example")

	_, body := env.do(t, c, http.MethodGet, "/auth/doctor/devices", nil)
	devices := decodeBody[[]device.Device](t, body)
	if len(devices) != 1 {
		t.Fatalf("expected one device, got %d", len(devices))
	}

	resp, body := env.do(t, c, http.MethodDelete, "/auth/doctor/devices/"+devices[0].ID, nil)
	expectStatus(t, resp, body, http.StatusNoContent)

	resp, body = env.do(t, c, http.MethodDelete, "/auth/doctor/devices/"+devices[0].ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestOTPRoutesRequireChallenge(t *testing.T) {
	env := newAPIEnv(t, nil)
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/otp/verify", otpVerifyRequest{Code: "123456"})
	expectStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/otp/resend", nil)
	expectStatus(t, resp, body, http.StatusUnauthorized)
}

func TestResendOTPRefreshesChallenge(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/login", loginRequest{Email: "doc@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusOK)

	env.mr.FastForward(31 * time.Second)
	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/otp/resend", nil)
	expectStatus(t, resp, body, http.StatusAccepted)

	var refreshed bool
	for _, ck := range resp.Cookies() {
		if ck.Name == ChallengeCookie && ck.Value != "" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Fatal("expected resend to reissue the challenge cookie")
	}

	msg, _ := env.sent.Last(notify.KindOTP, "doc@clinic.example")
	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/otp/verify", otpVerifyRequest{Code: msg.Data[notify.DataCode]})
	expectStatus(t, resp, body, http.StatusOK)
}

func TestChallengeIsRoleScoped(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/login", loginRequest{Email: "doc@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusOK)

	msg, _ := env.sent.Last(notify.KindOTP, "doc@clinic.example")
	resp, body = env.do(t, c, http.MethodPost, "/auth/patient/otp/verify", otpVerifyRequest{Code: msg.Data[notify.DataCode]})
	expectStatus(t, resp, body, http.StatusUnauthorized)
}

func TestLoginErrors(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/login", loginRequest{Email: "doc@clinic.example", Password: "wrong-password"})
	expectStatus(t, resp, body, http.StatusUnauthorized)
	if got := decodeBody[errorBody](t, body).Error; got != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %q", got)
	}

	resp, body = env.do(t, c, http.MethodPost, "/auth/nurse/login", loginRequest{Email: "doc@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusNotFound)

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/auth/doctor/login", bytes.NewBufferString("{"))
	raw, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", raw.StatusCode)
	}
}

func TestPasswordlessLoginFallsBackToMagicLink(t *testing.T) {
	env := newAPIEnv(t, nil)
	_, err := env.engine.CreateAccount(context.Background(), clinicauth.CreateAccountRequest{
		Role:  clinicauth.RolePatient,
		Email: "pat@clinic.example",
		Name:  "Pat",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/patient/login", loginRequest{Email: "pat@clinic.example", Password: "anything-at-all"})
	expectStatus(t, resp, body, http.StatusAccepted)
	if !decodeBody[loginResponse](t, body).MagicLinkSent {
		t.Fatalf("expected magic_link_sent, got %s", body)
	}

	token := env.lastLink(t, notify.KindMagicLink, "pat@clinic.example", "token")
	resp, body = env.do(t, c, http.MethodGet, "/auth/patient/magic-link/verify?token="+url.QueryEscape(token), nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = env.do(t, c, http.MethodGet, "/auth/patient/me", nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = env.do(t, c, http.MethodGet, "/auth/patient/magic-link/verify?token="+url.QueryEscape(token), nil)
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func TestPasswordlessLoginWithoutFallback(t *testing.T) {
	env := newAPIEnvWithEngine(t, func(c *clinicauth.Config) { c.Login.MagicLinkFallback = false }, nil)
	_, err := env.engine.CreateAccount(context.Background(), clinicauth.CreateAccountRequest{
		Role:  clinicauth.RolePatient,
		Email: "pat@clinic.example",
		Name:  "Pat",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	resp, body := env.do(t, env.client(t), http.MethodPost, "/auth/patient/login", loginRequest{Email: "pat@clinic.example", Password: "anything-at-all"})
	expectStatus(t, resp, body, http.StatusConflict)
	if got := decodeBody[errorBody](t, body).Error; got != "passwordless_account" {
		t.Fatalf("expected passwordless_account, got %q", got)
	}
	if _, ok := env.sent.Last(notify.KindMagicLink, "pat@clinic.example"); ok {
		t.Fatal("expected no magic link without fallback")
	}
}

func TestPasswordResetRoutes(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.createDoctor(t, "doc@clinic.example")
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/password/forgot", emailRequest{Email: "nobody@clinic.example"})
	expectStatus(t, resp, body, http.StatusAccepted)
	if n := len(env.sent.Messages()); n != 0 {
		t.Fatalf("expected no message for unknown email, got %d", n)
	}

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/password/forgot", emailRequest{Email: "doc@clinic.example"})
	expectStatus(t, resp, body, http.StatusAccepted)
	token := env.lastLink(t, notify.KindReset, "doc@clinic.example", "token")

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/password/reset", resetRequest{Token: token, Password: "short"})
	expectStatus(t, resp, body, http.StatusUnprocessableEntity)

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/password/reset", resetRequest{Token: token, Password: "a-brand-new-password"})
	expectStatus(t, resp, body, http.StatusNoContent)

	resp, body = env.do(t, c, http.MethodPost, "/auth/doctor/password/reset", resetRequest{Token: token, Password: "a-brand-new-password"})
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func TestAdminInviteRoutes(t *testing.T) {
	env := newAPIEnv(t, nil)
	if _, err := env.engine.CreateFirstAdmin(context.Background(), "Root Admin", "root@clinic.example", testPassword); err != nil {
		t.Fatalf("CreateFirstAdmin failed: %v", err)
	}
	anon := env.client(t)

	resp, body := env.do(t, anon, http.MethodPost, "/auth/admin/invites", inviteRequest{Name: "New", Email: "new@clinic.example"})
	expectStatus(t, resp, body, http.StatusUnauthorized)

	admin := env.client(t)
	env.loginWithOTP(t, admin, clinicauth.RoleAdmin, "root@clinic.example")

	resp, body = env.do(t, admin, http.MethodPost, "/auth/admin/invites", inviteRequest{Name: "New", Email: "new@clinic.example"})
	expectStatus(t, resp, body, http.StatusCreated)
	created := decodeBody[inviteResponse](t, body)
	if created.AdminID == "" {
		t.Fatalf("expected admin id, got %s", body)
	}
	msg, ok := env.sent.Last(notify.KindInvite, "new@clinic.example")
	if !ok || msg.Data[notify.DataInviter] != "Root Admin" {
		t.Fatalf("expected invite from Root Admin, got %+v", msg)
	}
	token := env.lastLink(t, notify.KindInvite, "new@clinic.example", "token")

	q := url.Values{"token": {token}, "email": {"new@clinic.example"}}
	resp, body = env.do(t, anon, http.MethodGet, "/auth/admin/invites/validate?"+q.Encode(), nil)
	expectStatus(t, resp, body, http.StatusOK)
	if info := decodeBody[inviteResponse](t, body); info.Name != "New" || info.AdminID != created.AdminID {
		t.Fatalf("unexpected invite info %+v", info)
	}

	resp, body = env.do(t, admin, http.MethodPost, "/auth/admin/invites/"+created.AdminID+"/resend", nil)
	expectStatus(t, resp, body, http.StatusNoContent)
	token = env.lastLink(t, notify.KindInvite, "new@clinic.example", "token")

	resp, body = env.do(t, anon, http.MethodPost, "/auth/admin/invites/accept", acceptInviteRequest{Token: token, Email: "new@clinic.example", Password: testPassword})
	expectStatus(t, resp, body, http.StatusNoContent)

	resp, body = env.do(t, admin, http.MethodDelete, "/auth/admin/invites/"+created.AdminID, nil)
	expectStatus(t, resp, body, http.StatusConflict)
	if got := decodeBody[errorBody](t, body).Error; got != "invite_not_pending" {
		t.Fatalf("expected invite_not_pending, got %q", got)
	}
}

func TestAdminCreatesAccounts(t *testing.T) {
	env := newAPIEnv(t, nil)
	if _, err := env.engine.CreateFirstAdmin(context.Background(), "Root Admin", "root@clinic.example", testPassword); err != nil {
		t.Fatalf("CreateFirstAdmin failed: %v", err)
	}
	admin := env.client(t)
	env.loginWithOTP(t, admin, clinicauth.RoleAdmin, "root@clinic.example")

	req := createAccountRequest{Role: "Doctor", Email: "Doc@Clinic.example", Name: "Dr Who", Password: testPassword}
	resp, body := env.do(t, admin, http.MethodPost, "/auth/admin/accounts", req)
	expectStatus(t, resp, body, http.StatusCreated)
	if acct := decodeBody[accountResponse](t, body); acct.Email != "doc@clinic.example" || acct.Role != "doctor" {
		t.Fatalf("unexpected account %+v", acct)
	}

	resp, body = env.do(t, admin, http.MethodPost, "/auth/admin/accounts", req)
	expectStatus(t, resp, body, http.StatusConflict)

	req.Role = "admin"
	req.Email = "other@clinic.example"
	resp, body = env.do(t, admin, http.MethodPost, "/auth/admin/accounts", req)
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func TestIPLimiterReturnsRetryAfter(t *testing.T) {
	env := newAPIEnv(t, func(cfg *Config) {
		cfg.RequestsPerSecond = 0.5
		cfg.Burst = 2
	})
	c := env.client(t)

	for i := 0; i < 2; i++ {
		resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/magic-link", emailRequest{Email: "x@clinic.example"})
		expectStatus(t, resp, body, http.StatusAccepted)
	}

	resp, body := env.do(t, c, http.MethodPost, "/auth/doctor/magic-link", emailRequest{Email: "x@clinic.example"})
	expectStatus(t, resp, body, http.StatusTooManyRequests)
	if got := resp.Header.Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	resp, body = env.do(t, c, http.MethodGet, "/healthz", nil)
	expectStatus(t, resp, body, http.StatusOK)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newAPIEnv(t, nil)
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !bytes.Contains(body, []byte("clinicauth_login_success_total")) {
		t.Fatalf("unexpected metrics body %s", body)
	}

	resp, body = env.do(t, c, http.MethodGet, "/healthz", nil)
	expectStatus(t, resp, body, http.StatusOK)

	env.mr.Close()
	resp, body = env.do(t, c, http.MethodGet, "/healthz", nil)
	expectStatus(t, resp, body, http.StatusServiceUnavailable)
	if got := decodeBody[healthResponse](t, body); got.RedisAvailable {
		t.Fatalf("expected redis unavailable")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{clinicauth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{clinicauth.ErrInviteExpired, http.StatusGone, "token_expired"},
		{clinicauth.ErrOTPAttemptsExceeded, http.StatusTooManyRequests, "too_many_requests"},
		{fmt.Errorf("%w: %v", clinicauth.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable, "unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		got := classify(tt.err)
		if got.status != tt.status || got.code != tt.code {
			t.Fatalf("classify(%v) = %d %q, want %d %q", tt.err, got.status, got.code, tt.status, tt.code)
		}
	}
}

func TestClientIP(t *testing.T) {
	s := &Server{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:5123"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := s.clientIP(r); got != "198.51.100.7" {
		t.Fatalf("expected remote address without trust, got %q", got)
	}

	s.cfg.TrustForwardedFor = true
	if got := s.clientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected forwarded address, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	if got := s.clientIP(r); got != "198.51.100.7" {
		t.Fatalf("expected fallback to remote address, got %q", got)
	}
}

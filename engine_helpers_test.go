package clinicauth

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/password"
	"github.com/MrEthical07/clinicauth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	testIP        = "203.0.113.10"
	testPassword  = "correct-horse-battery"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	store  *redisstore.Store
	sent   *notify.Recorder
	clock  *testClock
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.N = 1024
	cfg.Notify.Async = false
	cfg.Metrics.Enabled = true
	cfg.Links.BaseURL = "https://clinic.example"
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:    mr,
		rdb:   rdb,
		store: redisstore.New(rdb, "test"),
		sent:  &notify.Recorder{},
		clock: newTestClock(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(env.store).
		WithNotifier(env.sent).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

func clientCtx() context.Context {
	return clientCtxFrom(testIP, testUserAgent)
}

func clientCtxFrom(ip, userAgent string) context.Context {
	ctx := WithClientIP(context.Background(), ip)
	return WithUserAgent(ctx, userAgent)
}

func (env *testEnv) hash(t *testing.T, pw string) string {
	t.Helper()

	h, err := password.NewScrypt(env.engine.config.hasherConfig())
	if err != nil {
		t.Fatalf("NewScrypt failed: %v", err)
	}
	out, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return out
}

func (env *testEnv) createAccount(t *testing.T, role Role, email, pw string) *account.Account {
	t.Helper()

	var hash string
	if pw != "" {
		hash = env.hash(t, pw)
	}
	created, err := env.store.Create(context.Background(), accountFixture(role, email, hash))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return created
}

func accountFixture(role Role, email, passwordHash string) *account.Account {
	return &account.Account{
		Role:         role,
		Email:        email,
		Name:         "Test " + string(role),
		PasswordHash: passwordHash,
	}
}

func (env *testEnv) reload(t *testing.T, role Role, id string) *account.Account {
	t.Helper()

	acct, err := env.store.FindByID(context.Background(), role, id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	return acct
}

func (env *testEnv) lastMessage(t *testing.T, kind notify.Kind, to string) notify.Message {
	t.Helper()

	msg, ok := env.sent.Last(kind, to)
	if !ok {
		t.Fatalf("expected a %s message to %s", kind, to)
	}
	return msg
}

func (env *testEnv) count(kind notify.Kind) int {
	n := 0
	for _, m := range env.sent.Messages() {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func linkParam(t *testing.T, msg notify.Message, key string) string {
	t.Helper()

	u, err := url.Parse(msg.Data[notify.DataLink])
	if err != nil {
		t.Fatalf("invalid link %q: %v", msg.Data[notify.DataLink], err)
	}
	v := u.Query().Get(key)
	if v == "" {
		t.Fatalf("link %q has no %s parameter", u, key)
	}
	return v
}

// loginTrusted performs a full password + OTP login so the test device is
// remembered.
func (env *testEnv) loginTrusted(t *testing.T, role Role, email, pw string) *LoginResult {
	t.Helper()

	ctx := clientCtx()
	res, err := env.engine.LoginWithPassword(ctx, role, email, pw)
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if !res.RequiresOTP {
		return res
	}
	code := env.lastMessage(t, notify.KindOTP, email).Data[notify.DataCode]
	res, err = env.engine.VerifyOTPAndLogin(ctx, role, res.UserID, code)
	if err != nil {
		t.Fatalf("VerifyOTPAndLogin failed: %v", err)
	}
	return res
}

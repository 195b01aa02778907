package clinicauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/notify"
)

func TestSendMagicLinkUnknownEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	if err := env.engine.SendMagicLink(context.Background(), RolePatient, "ghost@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if n := len(env.sent.Messages()); n != 0 {
		t.Fatalf("expected no messages, got %d", n)
	}
}

func TestSendMagicLinkEligibility(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createAccount(t, RolePatient, "p@example.com", testPassword)
	env.createAccount(t, RoleDoctor, "dr@clinic.example", testPassword)
	env.createAccount(t, RoleDoctor, "dr.nopass@clinic.example", "")
	ctx := context.Background()

	for _, tc := range []struct {
		role  Role
		email string
		sent  bool
	}{
		{RolePatient, "p@example.com", true},
		{RoleDoctor, "dr@clinic.example", false},
		{RoleDoctor, "dr.nopass@clinic.example", true},
	} {
		if err := env.engine.SendMagicLink(ctx, tc.role, tc.email); err != nil {
			t.Fatalf("SendMagicLink(%s) failed: %v", tc.email, err)
		}
		if _, ok := env.sent.Last(notify.KindMagicLink, tc.email); ok != tc.sent {
			t.Fatalf("%s: expected sent=%v", tc.email, tc.sent)
		}
	}
}

func TestVerifyMagicLinkSingleUse(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", "")
	ctx := context.Background()

	if err := env.engine.SendMagicLink(ctx, RolePatient, "p@example.com"); err != nil {
		t.Fatalf("SendMagicLink failed: %v", err)
	}
	token := linkParam(t, env.lastMessage(t, notify.KindMagicLink, acct.Email), "token")

	res, err := env.engine.VerifyMagicLink(ctx, RolePatient, token)
	if err != nil {
		t.Fatalf("VerifyMagicLink failed: %v", err)
	}
	if res.RequiresOTP || res.SessionToken == "" || res.DeviceID != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if stored := env.reload(t, RolePatient, acct.ID); len(stored.Devices) != 0 {
		t.Fatal("expected magic link login to leave devices untouched")
	}

	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, token); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected ErrMagicLinkInvalid on reuse, got %v", err)
	}
}

func TestVerifyMagicLinkExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", "")
	ctx := context.Background()

	_ = env.engine.SendMagicLink(ctx, RolePatient, "p@example.com")
	token := linkParam(t, env.lastMessage(t, notify.KindMagicLink, acct.Email), "token")

	env.clock.Advance(16 * time.Minute)
	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, token); !errors.Is(err, ErrMagicLinkExpired) {
		t.Fatalf("expected ErrMagicLinkExpired, got %v", err)
	}
	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, token); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected expired link discarded, got %v", err)
	}
}

func TestVerifyMagicLinkWrongRoleOrToken(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", "")
	ctx := context.Background()

	_ = env.engine.SendMagicLink(ctx, RolePatient, "p@example.com")
	token := linkParam(t, env.lastMessage(t, notify.KindMagicLink, acct.Email), "token")

	if _, err := env.engine.VerifyMagicLink(ctx, RoleDoctor, token); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected ErrMagicLinkInvalid for wrong role, got %v", err)
	}
	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, "not-a-token"); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected ErrMagicLinkInvalid, got %v", err)
	}
	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, ""); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected ErrMagicLinkInvalid for empty token, got %v", err)
	}
}

func TestSendMagicLinkSupersedesPrevious(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", "")
	ctx := context.Background()

	_ = env.engine.SendMagicLink(ctx, RolePatient, "p@example.com")
	first := linkParam(t, env.lastMessage(t, notify.KindMagicLink, acct.Email), "token")
	_ = env.engine.SendMagicLink(ctx, RolePatient, "p@example.com")
	second := linkParam(t, env.lastMessage(t, notify.KindMagicLink, acct.Email), "token")

	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, first); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected superseded link rejected, got %v", err)
	}
	if _, err := env.engine.VerifyMagicLink(ctx, RolePatient, second); err != nil {
		t.Fatalf("expected latest link accepted, got %v", err)
	}
}

type emailRecordingStore struct {
	account.Store
	emails []string
}

func (s *emailRecordingStore) FindByEmail(ctx context.Context, role account.Role, email string) (*account.Account, error) {
	s.emails = append(s.emails, email)
	return s.Store.FindByEmail(ctx, role, email)
}

func TestSendMagicLinkNormalizesEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createAccount(t, RolePatient, "pat@example.com", "")

	recording := &emailRecordingStore{Store: env.store}
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(env.rdb).
		WithAccountStore(recording).
		WithNotifier(env.sent).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.SendMagicLink(context.Background(), RolePatient, "  Pat@Example.COM "); err != nil {
		t.Fatalf("SendMagicLink failed: %v", err)
	}
	if len(recording.emails) != 1 || recording.emails[0] != "pat@example.com" {
		t.Fatalf("expected normalized lookup, got %q", recording.emails)
	}
	env.lastMessage(t, notify.KindMagicLink, "pat@example.com")
}

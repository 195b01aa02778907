package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T) *ChallengeManager {
	t.Helper()
	m, err := NewChallengeManager(Config{
		TTL:           10 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "clinicauth",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestChallengeRoundTrip(t *testing.T) {
	m := newHSManager(t)

	token, exp, err := m.Issue("user-1", "patient", "dev-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 9*time.Minute || d > 10*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.Parse(token, "patient")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "user-1" || claims.Role != "patient" || claims.DeviceID != "dev-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestChallengeRejectsOtherRole(t *testing.T) {
	m := newHSManager(t)
	token, _, _ := m.Issue("user-1", "patient", "")

	if _, err := m.Parse(token, "admin"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid, got %v", err)
	}
}

func TestChallengeExpires(t *testing.T) {
	m := newHSManager(t)
	now := time.Now()
	issuer := m.WithClock(func() time.Time { return now })
	token, _, _ := issuer.Issue("user-1", "doctor", "")

	later := m.WithClock(func() time.Time { return now.Add(11 * time.Minute) })
	if _, err := later.Parse(token, "doctor"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
}

func TestChallengeRejectsWrongAlgorithmAndKey(t *testing.T) {
	m := newHSManager(t)

	claims := ChallengeClaims{UID: "user-1", Role: "patient", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "clinicauth",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("another-secret-another-secret-xx"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(forged, "patient"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected forged token rejected, got %v", err)
	}

	none, _ := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if _, err := m.Parse(none, "patient"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected alg none rejected, got %v", err)
	}
}

func TestChallengeEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewChallengeManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _, err := m.Issue("user-2", "admin", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(token, "admin"); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestNewChallengeManagerValidation(t *testing.T) {
	for _, cfg := range []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: testSecret},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: testSecret},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("not-a-key")},
	} {
		if _, err := NewChallengeManager(cfg); err == nil {
			t.Fatalf("expected config %+v to be rejected", cfg)
		}
	}
}

func FuzzChallengeParse(f *testing.F) {
	m, err := NewChallengeManager(Config{TTL: 5 * time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		f.Fatal(err)
	}
	valid, _, err := m.Issue("uid1", "patient", "dev")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.Parse(input, "")
		if err != nil {
			return
		}
		if claims == nil || claims.UID == "" {
			t.Fatal("Parse accepted a token without a user id")
		}
	})
}

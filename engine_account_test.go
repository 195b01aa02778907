package clinicauth

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	acct, err := env.engine.CreateAccount(ctx, CreateAccountRequest{
		Role:       RoleDoctor,
		Email:      "  Dr.House@Clinic.Example ",
		Name:       "Greg House",
		Password:   testPassword,
		Attributes: map[string]string{"specialty": "diagnostics"},
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if acct.ID == "" || acct.Email != "dr.house@clinic.example" || !acct.HasPassword() {
		t.Fatalf("unexpected account %+v", acct)
	}

	stored := env.reload(t, RoleDoctor, acct.ID)
	if stored.Attributes["specialty"] != "diagnostics" {
		t.Fatalf("expected attributes persisted, got %+v", stored.Attributes)
	}

	if _, err := env.engine.CreateAccount(ctx, CreateAccountRequest{Role: RoleDoctor, Email: "dr.house@clinic.example"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := env.engine.CreateAccount(ctx, CreateAccountRequest{Role: RolePatient, Email: "dr.house@clinic.example"}); err != nil {
		t.Fatalf("expected the same email allowed under another role, got %v", err)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		req  CreateAccountRequest
		want error
	}{
		{"admin role", CreateAccountRequest{Role: RoleAdmin, Email: "a@clinic.example"}, ErrInvalidRole},
		{"unknown role", CreateAccountRequest{Role: "nurse", Email: "n@clinic.example"}, ErrInvalidRole},
		{"bad email", CreateAccountRequest{Role: RolePatient, Email: "patient"}, ErrInvalidRequest},
		{"weak password", CreateAccountRequest{Role: RolePatient, Email: "p@example.com", Password: "1234"}, ErrPasswordPolicy},
	} {
		if _, err := env.engine.CreateAccount(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreatePasswordlessPatient(t *testing.T) {
	env := newTestEnv(t, nil)

	acct, err := env.engine.CreateAccount(context.Background(), CreateAccountRequest{Role: RolePatient, Email: "p@example.com"})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if acct.HasPassword() {
		t.Fatal("expected passwordless account")
	}
}

func TestCreateFirstAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	admin, err := env.engine.CreateFirstAdmin(ctx, "Owner", "owner@clinic.example", testPassword)
	if err != nil {
		t.Fatalf("CreateFirstAdmin failed: %v", err)
	}
	if admin.Pending() || admin.Role != RoleAdmin {
		t.Fatalf("expected active admin, got %+v", admin)
	}
	if _, err := env.engine.CreateFirstAdmin(ctx, "Owner", "owner@clinic.example", testPassword); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := env.engine.CreateFirstAdmin(ctx, "Owner", "second@clinic.example", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping postgres store tests")
	}

	db, err := Open(Config{DSN: dsn, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@clinic.example"
}

func TestPostgresCreateFindUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	email := uniqueEmail("Doctor")

	created, err := s.Create(ctx, &account.Account{
		Role:       account.RoleDoctor,
		Email:      email,
		Name:       "Dr Pg",
		Attributes: map[string]string{"clinic_id": "c-9"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(context.Background(), account.RoleDoctor, created.ID) })

	if _, err := s.Create(ctx, &account.Account{Role: account.RoleDoctor, Email: email}); !errors.Is(err, account.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	created.SessionToken = "session-digest-" + created.ID
	created.SessionExpiresAt = now.Add(time.Hour)
	created.Devices = device.Remember(nil, "dev-1", "Mozilla/5.0 Firefox/121.0", "198.51.100.7", now)
	if err := s.Update(ctx, created); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := s.FindByToken(ctx, account.RoleDoctor, account.FieldSession, created.SessionToken)
	if err != nil {
		t.Fatalf("FindByToken error: %v", err)
	}
	if got.ID != created.ID || got.Attributes["clinic_id"] != "c-9" {
		t.Fatalf("unexpected account %+v", got)
	}
	if len(got.Devices) != 1 || !got.Devices[0].Trusted {
		t.Fatalf("expected one trusted device, got %+v", got.Devices)
	}
	if !got.SessionExpiresAt.Equal(created.SessionExpiresAt) {
		t.Fatalf("expected session expiry round trip, got %v", got.SessionExpiresAt)
	}

	created.ClearSession()
	if err := s.Update(ctx, created); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if _, err := s.FindByToken(ctx, account.RoleDoctor, account.FieldSession, "session-digest-"+created.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected cleared session to miss, got %v", err)
	}

	if err := s.Delete(ctx, account.RoleDoctor, created.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.FindByID(ctx, account.RoleDoctor, created.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresDeviceCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct, err := s.Create(ctx, &account.Account{Role: account.RolePatient, Email: uniqueEmail("patient")})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(context.Background(), account.RolePatient, acct.ID) })

	now := time.Now().UTC()
	for i := 0; i < device.MaxDevices+3; i++ {
		acct.Devices = append(acct.Devices, device.Device{
			ID:         uuid.NewString(),
			Trusted:    true,
			CreatedAt:  now,
			LastUsedAt: now,
		})
	}
	if err := s.Update(ctx, acct); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := s.FindByID(ctx, account.RolePatient, acct.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if len(got.Devices) != device.MaxDevices {
		t.Fatalf("expected %d devices, got %d", device.MaxDevices, len(got.Devices))
	}
	if got.Devices[0].ID != acct.Devices[3].ID {
		t.Fatal("expected the three oldest devices dropped")
	}
}

func TestFindByIDRejectsNonUUID(t *testing.T) {
	s := New(nil)
	if _, err := s.FindByID(context.Background(), account.RoleAdmin, "not-a-uuid"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

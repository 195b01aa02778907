package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrEthical07/clinicauth/device"
	"github.com/MrEthical07/clinicauth/notify"
)

func TestListAndForgetDevice(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", testPassword)
	res := env.loginTrusted(t, RolePatient, "p@example.com", testPassword)
	ctx := context.Background()

	devices, err := env.engine.ListDevices(ctx, RolePatient, acct.ID)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != res.DeviceID {
		t.Fatalf("unexpected devices %+v", devices)
	}
	if devices[0].UserAgent != "Chrome on Windows" || devices[0].IPAddress != testIP {
		t.Fatalf("unexpected device record %+v", devices[0])
	}

	if err := env.engine.ForgetDevice(ctx, RolePatient, acct.ID, res.DeviceID); err != nil {
		t.Fatalf("ForgetDevice failed: %v", err)
	}
	if err := env.engine.ForgetDevice(ctx, RolePatient, acct.ID, res.DeviceID); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	again, err := env.engine.LoginWithPassword(clientCtx(), RolePatient, "p@example.com", testPassword)
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if !again.RequiresOTP {
		t.Fatal("expected forgotten device to require OTP")
	}
}

func TestDeviceListCappedAtTen(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.createAccount(t, RolePatient, "p@example.com", testPassword)

	for i := 0; i < device.MaxDevices+2; i++ {
		ctx := clientCtxFrom(fmt.Sprintf("198.51.%d.1", i), testUserAgent)
		res, err := env.engine.LoginWithPassword(ctx, RolePatient, "p@example.com", testPassword)
		if err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
		code := env.lastMessage(t, notify.KindOTP, "p@example.com").Data[notify.DataCode]
		if _, err := env.engine.VerifyOTPAndLogin(ctx, RolePatient, res.UserID, code); err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
	}

	devices, err := env.engine.ListDevices(context.Background(), RolePatient, acct.ID)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != device.MaxDevices {
		t.Fatalf("expected %d devices, got %d", device.MaxDevices, len(devices))
	}
	if devices[0].IPAddress != "198.51.2.1" {
		t.Fatalf("expected the two oldest devices evicted, oldest is %s", devices[0].IPAddress)
	}
}

func TestListDevicesUnknownAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.ListDevices(context.Background(), RolePatient, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

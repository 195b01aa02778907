package clinicauth

import (
	"context"

	"github.com/MrEthical07/clinicauth/device"
)

// ListDevices returns the account's remembered devices, most recently used
// last.
func (e *Engine) ListDevices(ctx context.Context, role Role, userID string) ([]device.Device, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	acct, err := e.store.FindByID(ctx, role, userID)
	if err != nil {
		return nil, lookupError(err, ErrAccountNotFound)
	}

	out := make([]device.Device, len(acct.Devices))
	copy(out, acct.Devices)
	return out, nil
}

// ForgetDevice revokes trust in one device. The next password login from it
// is challenged with a code again.
func (e *Engine) ForgetDevice(ctx context.Context, role Role, userID, deviceID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	acct, err := e.store.FindByID(ctx, role, userID)
	if err != nil {
		return lookupError(err, ErrAccountNotFound)
	}
	if _, ok := device.Find(acct.Devices, deviceID); !ok {
		return ErrDeviceNotFound
	}

	acct.Devices = device.Forget(acct.Devices, deviceID)
	if err := e.save(ctx, acct); err != nil {
		return err
	}

	e.metricInc(MetricDeviceForgotten)
	e.emitAudit(ctx, auditEventDeviceForgotten, true, role, acct.ID, deviceID, nil, nil)
	return nil
}

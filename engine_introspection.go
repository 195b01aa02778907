package clinicauth

import (
	"context"
	"time"

	"github.com/MrEthical07/clinicauth/account"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the Redis instance backing the limiters.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   time.Since(start),
	}
}

// GetLoginAttempts returns the failed password logins counted for email in
// the current cooldown window.
func (e *Engine) GetLoginAttempts(ctx context.Context, role Role, email string) (int, error) {
	if e == nil || e.loginLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if !role.Valid() {
		return 0, ErrInvalidRole
	}
	email = account.NormalizeEmail(email)
	if email == "" {
		return 0, nil
	}

	return e.loginLimiter.GetLoginAttempts(ctx, string(role)+":"+email)
}

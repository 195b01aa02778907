package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOTPMaxAttempts    = 5
	defaultOTPResendCooldown = 30 * time.Second
	defaultOTPWindow         = 10 * time.Minute
)

var (
	ErrOTPResendCooldown     = errors.New("otp resend cooldown")
	ErrOTPAttemptsExceeded   = errors.New("otp attempts exceeded")
	ErrOTPLimiterUnavailable = errors.New("otp limiter unavailable")
)

// OTPConfig holds thresholds for OTP resend and verification throttling.
// Window is how long failed-attempt counters live; it should match the OTP
// lifetime.
type OTPConfig struct {
	MaxAttempts    int
	ResendCooldown time.Duration
	Window         time.Duration
}

// OTPLimiter throttles OTP resends per account and caps wrong-code attempts
// against a single issued code.
type OTPLimiter struct {
	redis  redis.UniversalClient
	config OTPConfig
}

// NewOTPLimiter creates an OTP limiter. Zero-value fields in cfg fall back to
// defaults (5 attempts, 30s cooldown, 10m window).
func NewOTPLimiter(redisClient redis.UniversalClient, cfg OTPConfig) *OTPLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultOTPMaxAttempts
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = defaultOTPResendCooldown
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultOTPWindow
	}
	return &OTPLimiter{redis: redisClient, config: cfg}
}

// MarkIssued starts the resend cooldown and clears failed attempts for a newly
// issued code.
func (l *OTPLimiter) MarkIssued(ctx context.Context, role, userID string) error {
	if l == nil {
		return nil
	}
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resendKey(role, userID), 1, l.config.ResendCooldown)
		pipe.Del(ctx, attemptKey(role, userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	return nil
}

// AcquireResend claims the resend slot. It returns ErrOTPResendCooldown while
// the previous code is still inside its cooldown.
func (l *OTPLimiter) AcquireResend(ctx context.Context, role, userID string) error {
	if l == nil {
		return nil
	}
	ok, err := l.redis.SetNX(ctx, resendKey(role, userID), 1, l.config.ResendCooldown).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	if !ok {
		return ErrOTPResendCooldown
	}
	if err := l.redis.Del(ctx, attemptKey(role, userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	return nil
}

// CheckAttempts returns ErrOTPAttemptsExceeded once the failure budget for the
// current code is spent.
func (l *OTPLimiter) CheckAttempts(ctx context.Context, role, userID string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, attemptKey(role, userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrOTPAttemptsExceeded
	}
	return nil
}

// RecordFailure counts a wrong code and returns ErrOTPAttemptsExceeded when
// this failure used up the budget.
func (l *OTPLimiter) RecordFailure(ctx context.Context, role, userID string) error {
	if l == nil {
		return nil
	}
	key := attemptKey(role, userID)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
		}
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrOTPAttemptsExceeded
	}
	return nil
}

// Reset clears both counters after a successful verification.
func (l *OTPLimiter) Reset(ctx context.Context, role, userID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, attemptKey(role, userID), resendKey(role, userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}
	return nil
}

func resendKey(role, userID string) string {
	return "cotr:" + role + ":" + userID
}

func attemptKey(role, userID string) string {
	return "cota:" + role + ":" + userID
}

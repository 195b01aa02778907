package clinicauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/internal/audit"
	"github.com/MrEthical07/clinicauth/internal/limiters"
	"github.com/MrEthical07/clinicauth/internal/rate"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/notify"
	"github.com/MrEthical07/clinicauth/password"
	"github.com/redis/go-redis/v9"
)

// Engine runs the login, session, invite and password reset flows for all
// three account roles. Build one with New().…Build().
//
// Engine methods are safe for concurrent use. Account mutations are
// read-modify-write against the store; the last write wins.
type Engine struct {
	config       Config
	redis        redis.UniversalClient
	store        account.Store
	hasher       *password.Scrypt
	issuer       *tokens.Issuer
	loginLimiter *rate.Limiter
	otpLimiter   *limiters.OTPLimiter
	resetLimiter *limiters.PasswordResetLimiter
	notifier     *notify.Dispatcher
	audit        *audit.Dispatcher
	metrics      *Metrics
	now          func() time.Time
	logger       *log.Logger
}

// Close drains the notification and audit queues.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifier != nil {
		e.notifier.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// NotificationsDropped returns how many messages were discarded because the
// notification queue was full.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil || e.notifier == nil {
		return 0
	}
	return e.notifier.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.hasher == nil || e.issuer == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) warn(format string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Printf("clinicauth: "+format, args...)
}

/*
====================================
STORE HELPERS
====================================
*/

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// lookupError maps a store read error. A missing account becomes notFound.
func lookupError(err, notFound error) error {
	if errors.Is(err, account.ErrNotFound) {
		return notFound
	}
	return storeError(err)
}

func (e *Engine) save(ctx context.Context, acct *account.Account) error {
	if err := e.store.Update(ctx, acct); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return ErrAccountExists
		}
		return storeError(err)
	}
	return nil
}

/*
====================================
NOTIFICATIONS
====================================
*/

func (e *Engine) send(ctx context.Context, kind notify.Kind, to string, data map[string]string) {
	e.notifier.Dispatch(ctx, notify.Message{
		Kind:      kind,
		To:        to,
		Data:      data,
		CreatedAt: e.now().UTC(),
	})
}

func (e *Engine) notifyFailed(msg notify.Message, err error) {
	e.metricInc(MetricNotifyFailure)
	e.warn("notification %s to %s failed: %v", msg.Kind, msg.To, err)
	e.emitAudit(context.Background(), auditEventNotificationFailed, false, "", "", "", err, func() map[string]string {
		return map[string]string{
			"kind": string(msg.Kind),
		}
	})
}

func (e *Engine) link(path string, query url.Values) string {
	return strings.TrimRight(e.config.Links.BaseURL, "/") + path + "?" + query.Encode()
}

func expiresIn(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d > time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}

/*
====================================
PASSWORDS
====================================
*/

func (e *Engine) checkPasswordPolicy(pw string) error {
	if len([]rune(pw)) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}
	if strings.TrimSpace(pw) == "" {
		return ErrPasswordPolicy
	}
	return nil
}

func (e *Engine) hashPassword(pw string) (string, error) {
	if err := e.checkPasswordPolicy(pw); err != nil {
		return "", err
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return "", tokenError(err)
	}
	return hash, nil
}

// upgradeHash rehashes with the current parameters when the stored hash was
// produced with different ones. The caller persists acct.
func (e *Engine) upgradeHash(ctx context.Context, acct *account.Account, pw string, stale bool) {
	if !e.config.Password.UpgradeOnLogin || !stale {
		return
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		e.warn("rehash for %s failed: %v", acct.ID, err)
		return
	}
	acct.PasswordHash = hash
	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, auditEventPasswordRehashed, true, acct.Role, acct.ID, "", nil, nil)
}

func tokenError(err error) error {
	return fmt.Errorf("%w: %v", ErrTokenGeneration, err)
}

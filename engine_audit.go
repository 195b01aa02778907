package clinicauth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventLoginPasswordless      = "login_passwordless"
	auditEventOTPRequired            = "otp_required"
	auditEventOTPSuccess             = "otp_success"
	auditEventOTPFailure             = "otp_failure"
	auditEventOTPAttemptsExceeded    = "otp_attempts_exceeded"
	auditEventOTPResent              = "otp_resent"
	auditEventMagicLinkSent          = "magic_link_sent"
	auditEventMagicLinkSuccess       = "magic_link_success"
	auditEventMagicLinkFailure       = "magic_link_failure"
	auditEventSessionRejected        = "session_rejected"
	auditEventLogoutSession          = "logout_session"
	auditEventDeviceTrusted          = "device_trusted"
	auditEventDeviceForgotten        = "device_forgotten"
	auditEventAccountCreated         = "account_created"
	auditEventInviteSent             = "invite_sent"
	auditEventInviteResent           = "invite_resent"
	auditEventInviteAccepted         = "invite_accepted"
	auditEventInviteFailure          = "invite_failure"
	auditEventInviteDeleted          = "invite_deleted"
	auditEventPasswordResetRequest   = "password_reset_request"
	auditEventPasswordResetConfirm   = "password_reset_confirm"
	auditEventPasswordRehashed       = "password_rehashed"
	auditEventNotificationFailed     = "notification_failed"
	auditEventRateLimitTriggered     = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label carried by failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrPasswordless       AuditErrorCode = "passwordless_account"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrInvalidState       AuditErrorCode = "invalid_state"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	role Role,
	userID string,
	deviceID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Role:      string(role),
		UserID:    userID,
		DeviceID:  deviceID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	role Role,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, role, "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func reason(r string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": r}
	}
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPasswordlessAccount):
		return auditErrPasswordless
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrOTPResendCooldown),
		errors.Is(err, ErrPasswordResetRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrOTPAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrMagicLinkInvalid),
		errors.Is(err, ErrInviteInvalid),
		errors.Is(err, ErrPasswordResetInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrMagicLinkExpired),
		errors.Is(err, ErrInviteExpired),
		errors.Is(err, ErrPasswordResetExpired),
		errors.Is(err, ErrSessionExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrDeviceNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrInviteNotPending),
		errors.Is(err, ErrInviteAlreadyAccepted),
		errors.Is(err, ErrInvalidRole):
		return auditErrInvalidState
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrLimiterUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

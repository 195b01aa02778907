package clinicauth

import "errors"

// Credential and token mismatches. Unknown accounts and wrong secrets map to
// the same error so callers cannot tell which accounts exist.
var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrOTPInvalid is returned when no OTP is outstanding or the code does not match.
	ErrOTPInvalid = errors.New("invalid verification code")
	// ErrMagicLinkInvalid is returned for unknown or already used magic links.
	ErrMagicLinkInvalid = errors.New("invalid magic link")
	// ErrInviteInvalid is returned for unknown invites or a token/email mismatch.
	ErrInviteInvalid = errors.New("invalid invite")
	// ErrPasswordResetInvalid is returned for unknown or already used reset tokens.
	ErrPasswordResetInvalid = errors.New("invalid password reset token")
	// ErrSessionNotFound is returned when no account holds the session token.
	ErrSessionNotFound = errors.New("session not found")
)

// Expired credentials. Reported separately from mismatches.
var (
	ErrOTPExpired           = errors.New("verification code expired")
	ErrMagicLinkExpired     = errors.New("magic link expired")
	ErrInviteExpired        = errors.New("invite expired")
	ErrPasswordResetExpired = errors.New("password reset token expired")
	ErrSessionExpired       = errors.New("session expired")
)

// Operations not allowed in the account's current state.
var (
	// ErrPasswordlessAccount is returned by password login for accounts that
	// have no password and must use a magic link.
	ErrPasswordlessAccount = errors.New("account requires passwordless login")
	// ErrInviteNotPending is returned when resending or deleting an invite
	// for an account that has already been activated.
	ErrInviteNotPending = errors.New("invite is not pending")
	// ErrInviteAlreadyAccepted is returned when validating or accepting an
	// invite that was already used.
	ErrInviteAlreadyAccepted = errors.New("invite already accepted")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by administrative lookups by id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDeviceNotFound is returned when forgetting a device the account does not have.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidRole is returned for roles outside admin, doctor and patient.
	ErrInvalidRole = errors.New("invalid account role")
	// ErrInvalidRequest is returned for missing required input.
	ErrInvalidRequest = errors.New("invalid request")
)

// Throttling.
var (
	ErrLoginRateLimited         = errors.New("login rate limited")
	ErrOTPResendCooldown        = errors.New("verification code recently sent")
	ErrOTPAttemptsExceeded      = errors.New("verification attempts exceeded")
	ErrPasswordResetRateLimited = errors.New("password reset rate limited")
)

// Backend failures.
var (
	// ErrStoreUnavailable wraps account store failures.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrLimiterUnavailable wraps Redis limiter failures.
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrTokenGeneration wraps random source failures.
	ErrTokenGeneration = errors.New("token generation failed")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

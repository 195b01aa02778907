package clinicauth

import (
	"time"

	"github.com/MrEthical07/clinicauth/account"
)

// Role is the account discriminant: admin, doctor or patient.
type Role = account.Role

const (
	RoleAdmin   = account.RoleAdmin
	RoleDoctor  = account.RoleDoctor
	RolePatient = account.RolePatient
)

// LoginResult is returned by every operation that can end in a session.
//
// When RequiresOTP is true no session was issued; a code was sent to the
// account's email and the caller must continue with VerifyOTPAndLogin.
type LoginResult struct {
	UserID           string
	Role             Role
	RequiresOTP      bool
	SessionToken     string
	SessionExpiresAt time.Time
	// DeviceID is the fingerprint the login was classified under. Empty for
	// magic-link logins.
	DeviceID string
}

// Session describes the account behind a valid session token.
type Session struct {
	UserID    string
	Role      Role
	Email     string
	Name      string
	ExpiresAt time.Time
}

// CreateAccountRequest provisions a doctor or patient account. Password is
// optional; an empty password creates a passwordless account.
type CreateAccountRequest struct {
	Role       Role
	Email      string
	Name       string
	Password   string
	Attributes map[string]string
}

// InviteRequest creates a pending admin.
type InviteRequest struct {
	Name        string
	Email       string
	InviterName string
}

// InviteResult identifies the pending admin created by InviteAdmin.
type InviteResult struct {
	AdminID   string
	ExpiresAt time.Time
}

// InviteInfo is what the invite acceptance page shows before a password is set.
type InviteInfo struct {
	AdminID   string
	Name      string
	Email     string
	ExpiresAt time.Time
}

package account

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/clinicauth/device"
	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned by stores when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned by Create when the role already has the email.
	ErrEmailTaken = errors.New("account email already registered")
	// ErrInvalidRole is returned for roles outside admin, doctor and patient.
	ErrInvalidRole = errors.New("invalid account role")
)

// Role discriminates the three kinds of clinic account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Roles lists every supported role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleDoctor, RolePatient}
}

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether r is a supported role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// InviteStatus tracks admin invite progress.
type InviteStatus string

const (
	InviteNone    InviteStatus = ""
	InvitePending InviteStatus = "pending"
	InviteActive  InviteStatus = "active"
)

// TokenField names a token digest column for FindByToken.
type TokenField string

const (
	FieldSession   TokenField = "session"
	FieldMagicLink TokenField = "magic_link"
	FieldReset     TokenField = "reset"
	FieldInvite    TokenField = "invite"
)

// TokenFields lists every indexable token field.
func TokenFields() []TokenField {
	return []TokenField{FieldSession, FieldMagicLink, FieldReset, FieldInvite}
}

// Account is a clinic user of any role.
type Account struct {
	ID           string
	Role         Role
	Email        string
	Name         string
	PasswordHash string
	Devices      []device.Device

	SessionToken     string
	SessionExpiresAt time.Time

	OTPCode      string
	OTPExpiresAt time.Time

	MagicLinkToken     string
	MagicLinkExpiresAt time.Time

	ResetToken       string
	ResetTokenExpiry time.Time

	InviteToken     string
	InviteExpiresAt time.Time
	InviteStatus    InviteStatus

	Attributes map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can log in with a password.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// Pending reports whether the account is an unaccepted admin invite.
func (a *Account) Pending() bool {
	return a != nil && a.InviteStatus == InvitePending
}

// TokenHash returns the stored digest for field.
func (a *Account) TokenHash(field TokenField) string {
	switch field {
	case FieldSession:
		return a.SessionToken
	case FieldMagicLink:
		return a.MagicLinkToken
	case FieldReset:
		return a.ResetToken
	case FieldInvite:
		return a.InviteToken
	}
	return ""
}

// ClearOTP drops any outstanding OTP.
func (a *Account) ClearOTP() {
	a.OTPCode = ""
	a.OTPExpiresAt = time.Time{}
}

// ClearSession drops the server-side session.
func (a *Account) ClearSession() {
	a.SessionToken = ""
	a.SessionExpiresAt = time.Time{}
}

// ClearMagicLink drops any outstanding magic link.
func (a *Account) ClearMagicLink() {
	a.MagicLinkToken = ""
	a.MagicLinkExpiresAt = time.Time{}
}

// ClearReset drops any outstanding reset token.
func (a *Account) ClearReset() {
	a.ResetToken = ""
	a.ResetTokenExpiry = time.Time{}
}

// ClearInvite drops any outstanding invite token.
func (a *Account) ClearInvite() {
	a.InviteToken = ""
	a.InviteExpiresAt = time.Time{}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Devices = slices.Clone(a.Devices)
	c.Attributes = maps.Clone(a.Attributes)
	return &c
}

// NormalizeEmail trims and case-folds an email for lookups and uniqueness.
// A Caser is stateful, so each call builds its own.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

package pgstore

import (
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
)

type accountRow struct {
	ID           string            `gorm:"type:uuid;primaryKey"`
	Role         string            `gorm:"type:text;not null;uniqueIndex:idx_accounts_role_email,priority:1"`
	Email        string            `gorm:"type:text;not null;uniqueIndex:idx_accounts_role_email,priority:2"`
	Name         string            `gorm:"type:text"`
	PasswordHash string            `gorm:"type:text"`
	Attributes   map[string]string `gorm:"type:jsonb;serializer:json"`

	SessionToken     *string    `gorm:"type:text;index"`
	SessionExpiresAt *time.Time `gorm:"type:timestamptz"`
	OTPCode          *string    `gorm:"type:text"`
	OTPExpiresAt     *time.Time `gorm:"type:timestamptz"`

	MagicLinkToken     *string    `gorm:"type:text;index"`
	MagicLinkExpiresAt *time.Time `gorm:"type:timestamptz"`

	ResetToken       *string    `gorm:"type:text;index"`
	ResetTokenExpiry *time.Time `gorm:"type:timestamptz"`

	InviteToken     *string    `gorm:"type:text;index"`
	InviteExpiresAt *time.Time `gorm:"type:timestamptz"`
	InviteStatus    string     `gorm:"type:text"`

	Devices []deviceRow `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (accountRow) TableName() string { return "accounts" }

type deviceRow struct {
	AccountID  string    `gorm:"type:uuid;primaryKey"`
	DeviceID   string    `gorm:"type:text;primaryKey"`
	Position   int       `gorm:"not null"`
	UserAgent  string    `gorm:"type:text"`
	IPAddress  string    `gorm:"type:text"`
	Trusted    bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null"`
	LastUsedAt time.Time `gorm:"not null"`
}

func (deviceRow) TableName() string { return "account_devices" }

var tokenColumns = map[account.TokenField]string{
	account.FieldSession:   "session_token",
	account.FieldMagicLink: "magic_link_token",
	account.FieldReset:     "reset_token",
	account.FieldInvite:    "invite_token",
}

func toRow(a *account.Account) accountRow {
	row := accountRow{
		ID:                 a.ID,
		Role:               string(a.Role),
		Email:              a.Email,
		Name:               a.Name,
		PasswordHash:       a.PasswordHash,
		Attributes:         a.Attributes,
		SessionToken:       nullString(a.SessionToken),
		SessionExpiresAt:   nullTime(a.SessionExpiresAt),
		OTPCode:            nullString(a.OTPCode),
		OTPExpiresAt:       nullTime(a.OTPExpiresAt),
		MagicLinkToken:     nullString(a.MagicLinkToken),
		MagicLinkExpiresAt: nullTime(a.MagicLinkExpiresAt),
		ResetToken:         nullString(a.ResetToken),
		ResetTokenExpiry:   nullTime(a.ResetTokenExpiry),
		InviteToken:        nullString(a.InviteToken),
		InviteExpiresAt:    nullTime(a.InviteExpiresAt),
		InviteStatus:       string(a.InviteStatus),
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	for i, d := range device.Cap(a.Devices) {
		row.Devices = append(row.Devices, deviceRow{
			AccountID:  a.ID,
			DeviceID:   d.ID,
			Position:   i,
			UserAgent:  d.UserAgent,
			IPAddress:  d.IPAddress,
			Trusted:    d.Trusted,
			CreatedAt:  d.CreatedAt,
			LastUsedAt: d.LastUsedAt,
		})
	}
	return row
}

func fromRow(row *accountRow) *account.Account {
	a := &account.Account{
		ID:                 row.ID,
		Role:               account.Role(row.Role),
		Email:              row.Email,
		Name:               row.Name,
		PasswordHash:       row.PasswordHash,
		Attributes:         row.Attributes,
		SessionToken:       derefString(row.SessionToken),
		SessionExpiresAt:   derefTime(row.SessionExpiresAt),
		OTPCode:            derefString(row.OTPCode),
		OTPExpiresAt:       derefTime(row.OTPExpiresAt),
		MagicLinkToken:     derefString(row.MagicLinkToken),
		MagicLinkExpiresAt: derefTime(row.MagicLinkExpiresAt),
		ResetToken:         derefString(row.ResetToken),
		ResetTokenExpiry:   derefTime(row.ResetTokenExpiry),
		InviteToken:        derefString(row.InviteToken),
		InviteExpiresAt:    derefTime(row.InviteExpiresAt),
		InviteStatus:       account.InviteStatus(row.InviteStatus),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	for _, d := range row.Devices {
		a.Devices = append(a.Devices, device.Device{
			ID:         d.DeviceID,
			UserAgent:  d.UserAgent,
			IPAddress:  d.IPAddress,
			Trusted:    d.Trusted,
			CreatedAt:  d.CreatedAt,
			LastUsedAt: d.LastUsedAt,
		})
	}
	return a
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

package redisstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
)

const recordVersionV1 = 1

var errInvalidRecord = errors.New("invalid account record")

type record struct {
	ID           string            `json:"id"`
	Role         string            `json:"role"`
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	PasswordHash string            `json:"password_hash,omitempty"`
	Devices      []device.Device   `json:"devices,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`

	SessionToken     string    `json:"session_token,omitempty"`
	SessionExpiresAt time.Time `json:"session_expires_at"`

	OTPCode      string    `json:"otp_code,omitempty"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`

	MagicLinkToken     string    `json:"magic_link_token,omitempty"`
	MagicLinkExpiresAt time.Time `json:"magic_link_expires_at"`

	ResetToken       string    `json:"reset_token,omitempty"`
	ResetTokenExpiry time.Time `json:"reset_token_expiry"`

	InviteToken     string    `json:"invite_token,omitempty"`
	InviteExpiresAt time.Time `json:"invite_expires_at"`
	InviteStatus    string    `json:"invite_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func encodeRecord(a *account.Account) ([]byte, error) {
	r := record{
		ID:                 a.ID,
		Role:               string(a.Role),
		Email:              a.Email,
		Name:               a.Name,
		PasswordHash:       a.PasswordHash,
		Devices:            device.Cap(a.Devices),
		Attributes:         a.Attributes,
		SessionToken:       a.SessionToken,
		SessionExpiresAt:   a.SessionExpiresAt,
		OTPCode:            a.OTPCode,
		OTPExpiresAt:       a.OTPExpiresAt,
		MagicLinkToken:     a.MagicLinkToken,
		MagicLinkExpiresAt: a.MagicLinkExpiresAt,
		ResetToken:         a.ResetToken,
		ResetTokenExpiry:   a.ResetTokenExpiry,
		InviteToken:        a.InviteToken,
		InviteExpiresAt:    a.InviteExpiresAt,
		InviteStatus:       string(a.InviteStatus),
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, recordVersionV1)
	return append(out, body...), nil
}

func decodeRecord(data []byte) (*account.Account, error) {
	if len(data) < 2 || data[0] != recordVersionV1 {
		return nil, errInvalidRecord
	}

	var r record
	if err := json.Unmarshal(data[1:], &r); err != nil {
		return nil, errInvalidRecord
	}

	return &account.Account{
		ID:                 r.ID,
		Role:               account.Role(r.Role),
		Email:              r.Email,
		Name:               r.Name,
		PasswordHash:       r.PasswordHash,
		Devices:            r.Devices,
		Attributes:         r.Attributes,
		SessionToken:       r.SessionToken,
		SessionExpiresAt:   r.SessionExpiresAt,
		OTPCode:            r.OTPCode,
		OTPExpiresAt:       r.OTPExpiresAt,
		MagicLinkToken:     r.MagicLinkToken,
		MagicLinkExpiresAt: r.MagicLinkExpiresAt,
		ResetToken:         r.ResetToken,
		ResetTokenExpiry:   r.ResetTokenExpiry,
		InviteToken:        r.InviteToken,
		InviteExpiresAt:    r.InviteExpiresAt,
		InviteStatus:       account.InviteStatus(r.InviteStatus),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

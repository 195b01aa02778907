package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const opaqueSize = 32

var (
	// ErrTokenNotFound means no credential of this purpose is outstanding.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired means the stored credential is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMismatch means the presented value does not match the stored digest.
	ErrTokenMismatch = errors.New("token mismatch")
)

// Token is a freshly minted credential.
type Token struct {
	Value     string
	Hash      string
	ExpiresAt time.Time
}

// Config sets the lifetime of each credential kind.
type Config struct {
	SessionTTL   time.Duration
	OTPTTL       time.Duration
	MagicLinkTTL time.Duration
	ResetTTL     time.Duration
	InviteTTL    time.Duration
	OTPDigits    int
}

// Issuer mints credentials with expiries derived from Now.
type Issuer struct {
	config Config
	now    func() time.Time
}

// NewIssuer returns an issuer. A nil now uses time.Now.
func NewIssuer(cfg Config, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{config: cfg, now: now}
}

// Session mints a long-lived session token.
func (i *Issuer) Session() (Token, error) {
	return i.opaque(i.config.SessionTTL)
}

// MagicLink mints a passwordless login token.
func (i *Issuer) MagicLink() (Token, error) {
	return i.opaque(i.config.MagicLinkTTL)
}

// Reset mints a password reset token.
func (i *Issuer) Reset() (Token, error) {
	return i.opaque(i.config.ResetTTL)
}

// Invite mints an admin invite token.
func (i *Issuer) Invite() (Token, error) {
	return i.opaque(i.config.InviteTTL)
}

// OTP mints a numeric one-time code.
func (i *Issuer) OTP() (Token, error) {
	code, err := NewOTP(i.config.OTPDigits)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Value:     code,
		Hash:      Hash(code),
		ExpiresAt: i.now().Add(i.config.OTPTTL),
	}, nil
}

func (i *Issuer) opaque(ttl time.Duration) (Token, error) {
	value, err := NewOpaque()
	if err != nil {
		return Token{}, err
	}
	return Token{
		Value:     value,
		Hash:      Hash(value),
		ExpiresAt: i.now().Add(ttl),
	}, nil
}

// NewOpaque returns 32 random bytes encoded as unpadded base64url.
func NewOpaque() (string, error) {
	var raw [opaqueSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewOTP returns a uniformly random decimal code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// Hash returns the hex SHA-256 digest stored in place of a credential.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether presented hashes to storedHash, ignoring expiry.
func Matches(storedHash, presented string) bool {
	if storedHash == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(presented)), []byte(storedHash)) == 1
}

// Check validates presented against the stored digest and expiry. Expiry is
// checked before the value so an expired credential reports ErrTokenExpired
// even when the value matches.
func Check(storedHash string, expiresAt time.Time, presented string, now time.Time) error {
	if storedHash == "" {
		return ErrTokenNotFound
	}
	if expiresAt.IsZero() || now.After(expiresAt) {
		return ErrTokenExpired
	}
	if presented == "" {
		return ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(Hash(presented)), []byte(storedHash)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

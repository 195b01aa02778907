package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultN, DefaultR and DefaultP are the scrypt library defaults.
	DefaultN = 16384
	DefaultR = 8
	DefaultP = 1

	DefaultSaltLength = 16
	DefaultKeyLength  = 64

	minSaltLength = 16
	minKeyLength  = 32
	separator     = ":"
)

// Cost is one scrypt N/r/p parameter set.
type Cost struct {
	N int
	R int
	P int
}

// Config holds scrypt cost parameters.
//
// The stored format does not record N, r or p. Hashes produced under earlier
// cost settings verify only when those settings are listed in Legacy; a
// legacy match is reported as needing an upgrade.
type Config struct {
	N          int
	R          int
	P          int
	SaltLength int
	KeyLength  int
	Legacy     []Cost
}

// DefaultConfig returns the scrypt parameters used for stored account hashes.
func DefaultConfig() Config {
	return Config{
		N:          DefaultN,
		R:          DefaultR,
		P:          DefaultP,
		SaltLength: DefaultSaltLength,
		KeyLength:  DefaultKeyLength,
	}
}

// Scrypt hashes and verifies passwords in the "<saltHex>:<keyHex>" format.
//
// Scrypt is immutable after construction and safe for concurrent use.
type Scrypt struct {
	config Config
}

// NewScrypt validates cfg and returns a hasher.
func NewScrypt(cfg Config) (*Scrypt, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.Legacy = append([]Cost(nil), cfg.Legacy...)
	return &Scrypt{config: cfg}, nil
}

// Hash derives a key from password with a fresh random salt.
func (s *Scrypt) Hash(password string) (string, error) {
	salt := make([]byte, s.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(password), salt, s.config.N, s.config.R, s.config.P, s.config.KeyLength)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(salt) + separator + hex.EncodeToString(key), nil
}

// Verify reports whether password matches stored under the current or a
// legacy cost. Malformed stored values return false.
func (s *Scrypt) Verify(password, stored string) bool {
	ok, _ := s.Match(password, stored)
	return ok
}

// Match reports whether password matches stored and, if so, whether stored
// should be rehashed with the current parameters.
func (s *Scrypt) Match(password, stored string) (ok, upgrade bool) {
	salt, want, valid := parseStored(stored)
	if !valid {
		return false, false
	}

	current := Cost{N: s.config.N, R: s.config.R, P: s.config.P}
	if derive(password, salt, want, current) {
		return true, s.NeedsUpgrade(stored)
	}
	for _, cost := range s.config.Legacy {
		if cost == current {
			continue
		}
		if derive(password, salt, want, cost) {
			return true, true
		}
	}
	return false, false
}

// NeedsUpgrade reports whether stored was produced with a different salt or
// key length than the current configuration. Malformed values need an upgrade.
// A cost mismatch is only detectable with the password; see Match.
func (s *Scrypt) NeedsUpgrade(stored string) bool {
	salt, key, ok := parseStored(stored)
	if !ok {
		return true
	}
	return len(salt) != s.config.SaltLength || len(key) != s.config.KeyLength
}

func derive(password string, salt, want []byte, cost Cost) bool {
	got, err := scrypt.Key([]byte(password), salt, cost.N, cost.R, cost.P, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parseStored(stored string) ([]byte, []byte, bool) {
	saltHex, keyHex, found := strings.Cut(stored, separator)
	if !found || saltHex == "" || keyHex == "" {
		return nil, nil, false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, nil, false
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, false
	}

	return salt, key, true
}

func validateConfig(cfg Config) error {
	if err := validateCost(Cost{N: cfg.N, R: cfg.R, P: cfg.P}); err != nil {
		return err
	}
	for _, cost := range cfg.Legacy {
		if err := validateCost(cost); err != nil {
			return fmt.Errorf("legacy cost: %w", err)
		}
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 32")
	}
	return nil
}

func validateCost(c Cost) error {
	if c.N <= 1 || c.N&(c.N-1) != 0 {
		return errors.New("password scrypt N must be a power of two greater than 1")
	}
	if c.R < 1 {
		return errors.New("password scrypt r must be >= 1")
	}
	if c.P < 1 {
		return errors.New("password scrypt p must be >= 1")
	}
	return nil
}

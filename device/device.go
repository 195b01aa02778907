package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxDevices is the number of remembered devices kept per account.
	MaxDevices = 10

	idLength = 32
)

// Device is one remembered client of an account.
type Device struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Trusted    bool      `json:"trusted"`
}

var versionPattern = regexp.MustCompile(`\d+(?:[._]\d+)+`)

// Fingerprint returns the 32-hex-character device id for a user agent and
// client IP.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(NormalizeUserAgent(userAgent) + ":" + PartialIP(ip)))
	return hex.EncodeToString(sum[:])[:idLength]
}

// NormalizeUserAgent collapses version numbers to "x" and lower-cases.
func NormalizeUserAgent(userAgent string) string {
	return strings.ToLower(strings.TrimSpace(versionPattern.ReplaceAllString(userAgent, "x")))
}

// PartialIP keeps the first three IPv4 octets or the first four IPv6 groups.
// Values that do not parse as an address are returned unchanged.
func PartialIP(ip string) string {
	ip = strings.TrimSpace(ip)
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}
	addr = addr.Unmap()

	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.%d", b[0], b[1], b[2])
	}

	b := addr.As16()
	return fmt.Sprintf("%x:%x:%x:%x",
		uint16(b[0])<<8|uint16(b[1]),
		uint16(b[2])<<8|uint16(b[3]),
		uint16(b[4])<<8|uint16(b[5]),
		uint16(b[6])<<8|uint16(b[7]),
	)
}

// IsKnown reports whether id is in devices and marked trusted.
func IsKnown(devices []Device, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range devices {
		if d.ID == id {
			return d.Trusted
		}
	}
	return false
}

// Remember records a trusted use of device id at now. An existing entry is
// refreshed and moved to the end; a new entry is appended. The result keeps
// at most MaxDevices entries, evicting from the front.
func Remember(devices []Device, id, userAgent, ip string, now time.Time) []Device {
	out := make([]Device, 0, len(devices)+1)
	entry := Device{
		ID:         id,
		UserAgent:  Label(userAgent),
		IPAddress:  ip,
		CreatedAt:  now,
		LastUsedAt: now,
		Trusted:    true,
	}

	for _, d := range devices {
		if d.ID == id {
			entry.CreatedAt = d.CreatedAt
			if d.UserAgent != "" {
				entry.UserAgent = d.UserAgent
			}
			continue
		}
		out = append(out, d)
	}
	out = append(out, entry)

	return Cap(out)
}

// Forget removes device id. Unknown ids leave the list unchanged.
func Forget(devices []Device, id string) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// Cap trims devices to the most recent MaxDevices entries.
func Cap(devices []Device) []Device {
	if len(devices) <= MaxDevices {
		return devices
	}
	return devices[len(devices)-MaxDevices:]
}

// Find returns the entry for id.
func Find(devices []Device, id string) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

package device

import "strings"

type rule struct {
	token string
	name  string
}

// Order matters: Edge and Opera user agents also carry "chrome", and Chrome
// carries "safari".
var browserRules = []rule{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"firefox", "Firefox"},
	{"fxios", "Firefox"},
	{"crios", "Chrome"},
	{"chrome", "Chrome"},
	{"safari", "Safari"},
}

var osRules = []rule{
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone", "iOS"},
	{"ipad", "iPadOS"},
	{"mac os", "macOS"},
	{"macintosh", "macOS"},
	{"cros", "ChromeOS"},
	{"linux", "Linux"},
}

// Label returns a short human-readable name such as "Chrome on Windows".
func Label(userAgent string) string {
	ua := strings.ToLower(userAgent)
	browser := match(ua, browserRules)
	platform := match(ua, osRules)

	switch {
	case browser != "" && platform != "":
		return browser + " on " + platform
	case browser != "":
		return browser
	case platform != "":
		return "Browser on " + platform
	case strings.TrimSpace(userAgent) == "":
		return "Unknown device"
	default:
		return "Unknown browser"
	}
}

func match(ua string, rules []rule) string {
	for _, r := range rules {
		if strings.Contains(ua, r.token) {
			return r.name
		}
	}
	return ""
}

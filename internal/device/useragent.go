package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent extracts a human-readable device label from a User-Agent string.
// Returns format: "Browser on OS" (e.g., "Chrome on macOS", "Safari on iPhone")
func ParseUserAgent(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)

	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + os)
}

// IsMobile reports whether the agent identifies as a mobile browser.
func IsMobile(userAgentString string) bool {
	if userAgentString == "" {
		return false
	}
	return useragent.New(userAgentString).Mobile()
}

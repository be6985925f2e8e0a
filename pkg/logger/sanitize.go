package logger

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveParams are query keys whose values never reach a log line.
var sensitiveParams = []string{"password", "token", "session", "secret", "email", "otp", "code", "auth", "device", "fingerprint"}

// SanitizedEmail masks an email address for logging: "jane@example.com" becomes "j***@*******.com".
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1)
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		domain = maskKeepingDots(domain[:dot]) + domain[dot:]
	}
	return masked + "@" + domain
}

func maskKeepingDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('*')
	}
	return b.String()
}

// EmailAttr is the slog attribute used for email addresses.
func EmailAttr(email string) slog.Attr {
	return slog.String("email", SanitizedEmail(email))
}

// RedactQuery returns rawQuery with the values of sensitive parameters replaced.
// A query that cannot be parsed is redacted whole.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			if isSensitiveParam(k) {
				v = redacted
			} else {
				v = url.QueryEscape(v)
			}
			parts = append(parts, url.QueryEscape(k)+"="+v)
		}
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(key)
	for _, p := range sensitiveParams {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

package logger

import (
	"log/slog"
	"strings"
)

// Key fragments whose values are never logged.
var secretKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"seal_key",
	"cookie",
}

// Keys holding student identity. Values are logged partly so support can
// still match a line to a record.
var personalKeys = map[string]bool{
	"id_number":   true,
	"first_name":  true,
	"middle_name": true,
	"last_name":   true,
	"full_name":   true,
}

// jwtPrefix is how the backend's signed session tokens start.
const jwtPrefix = "eyJ"

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		switch {
		case v == "":
			return a
		case looksLikeJWT(v):
			return slog.String(a.Key, maskValue(v))
		case IsSecretKey(a.Key):
			return slog.String(a.Key, redactedValue)
		case isPersonalKey(a.Key):
			return slog.String(a.Key, MaskPersonal(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

func looksLikeJWT(value string) bool {
	return strings.HasPrefix(value, jwtPrefix) && strings.Count(value, ".") == 2
}

// maskValue keeps the first and last 3 characters of values long enough
// that doing so reveals little.
func maskValue(value string) string {
	if len(value) <= 12 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// MaskPersonal hides most of a student identifier. ID numbers keep their
// last 4 digits, names their first letter of each part.
func MaskPersonal(value string) string {
	if isDigits(value) {
		if len(value) <= 4 {
			return strings.Repeat("*", len(value))
		}
		return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
	}
	parts := strings.Fields(value)
	for i, p := range parts {
		r := []rune(p)
		parts[i] = string(r[0]) + "***"
	}
	return strings.Join(parts, " ")
}

// IsSecretKey reports whether a key names a credential. Header names such
// as X-Session-Token match as well.
func IsSecretKey(key string) bool {
	k := normalizeKey(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}

func isPersonalKey(key string) bool {
	return personalKeys[normalizeKey(key)]
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "-", "_"))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

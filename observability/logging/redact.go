package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the placeholder written in place of secrets.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"secret":        {},
	"jwt":           {},
	"password":      {},
	"passphrase":    {},
	"authorization": {},
	"headers":       {},
}

// IsSensitive reports whether key names a value that must not be logged.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, ok := sensitiveKeys[normalized]; ok {
		return true
	}
	return strings.HasSuffix(normalized, "_secret") || strings.HasSuffix(normalized, "_jwt")
}

// MaskField returns an attribute whose value is redacted when the key is
// sensitive. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

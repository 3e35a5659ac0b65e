package device

import (
	"strings"

	"github.com/google/uuid"
)

const (
	sigBasePrefix = "0000"
	sigBaseSuffix = "00001000800000805f9b34fb"
)

// NormalizeUUID converts a UUID string to the go-ble form (lowercase, no dashes).
// A 0x prefix is stripped, and full 128-bit UUIDs built on the Bluetooth SIG
// base (0000xxxx-0000-1000-8000-00805f9b34fb) collapse to their 16-bit form.
// Returns "" for malformed input.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	switch len(s) {
	case 4, 8:
		if !isHex(s) {
			return ""
		}
		return s
	case 32:
		if _, err := uuid.Parse(s); err != nil {
			return ""
		}
		if strings.HasPrefix(s, sigBasePrefix) && strings.HasSuffix(s, sigBaseSuffix) {
			return s[4:8]
		}
		return s
	default:
		return ""
	}
}

// EqualUUID reports whether two UUID strings name the same attribute,
// regardless of formatting. Malformed UUIDs never match.
func EqualUUID(a, b string) bool {
	na := NormalizeUUID(a)
	return na != "" && na == NormalizeUUID(b)
}

// ShortenUUID returns a truncated UUID for display
func ShortenUUID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

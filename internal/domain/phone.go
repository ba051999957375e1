package domain

import (
	"regexp"
	"strings"
)

// Kenyan mobile numbers in international form: 254 followed by a 7xx or 1xx
// prefix and eight more digits.
var kenyanMobileRe = regexp.MustCompile(`^254(?:7|1)\d{8}$`)

// NormalizePhone converts a Kenyan phone number to the 254XXXXXXXXX form the
// M-Pesa gateway expects. It strips a leading "+", replaces a leading "0" with
// the country code, and leaves already-normalized numbers unchanged, so the
// function is idempotent.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")

	switch {
	case strings.HasPrefix(s, "254"):
		return s
	case strings.HasPrefix(s, "0"):
		return "254" + s[1:]
	default:
		return "254" + s
	}
}

// IsValidPhone reports whether the number normalizes to a well-formed Kenyan
// mobile number.
func IsValidPhone(raw string) bool {
	return kenyanMobileRe.MatchString(NormalizePhone(raw))
}

// Package phone normalizes Sri Lankan phone numbers to the 94XXXXXXXXX form
// expected by the SMS gateway.
package phone

import (
	"strings"

	"github.com/jerseyhouse/storefront/internal/validation"
)

const countryCode = "94"

// ErrInvalid is returned for numbers that cannot be normalized. It is a
// validation error so HTTP handlers report it as a bad request.
var ErrInvalid = &validation.Error{Field: "phone", Reason: "must be a valid Sri Lankan number"}

// Normalize accepts 0XXXXXXXXX, XXXXXXXXX, 94XXXXXXXXX, +94XXXXXXXXX and
// 0094XXXXXXXXX with any spacing or punctuation.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		case r == '+' && i == 0:
		default:
			return "", ErrInvalid
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, countryCode):
		// already international
	case len(digits) == 10 && digits[0] == '0':
		digits = countryCode + digits[1:]
	case len(digits) == 9 && digits[0] == '7':
		digits = countryCode + digits
	default:
		return "", ErrInvalid
	}

	if digits[2] == '0' {
		return "", ErrInvalid
	}
	return digits, nil
}

// Mask hides all but the last three digits, for logs.
func Mask(p string) string {
	if len(p) <= 3 {
		return p
	}
	return strings.Repeat("*", len(p)-3) + p[len(p)-3:]
}

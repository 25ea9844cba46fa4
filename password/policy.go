package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Symbols accepted as the "special character" class. The set is fixed; it is
// part of the user-facing contract, not a tunable.
const policySymbols = `!@#$%^&*(),.?":{}|<>`

const defaultMinLength = 8

// Policy validates password strength before hashing. Rules are evaluated in a
// fixed order and the first failing rule wins, so users always see a single
// actionable reason.
type Policy struct {
	minLength int
}

// NewPolicy returns a Policy with the given length floor. Values below 1 fall
// back to the default of 8.
func NewPolicy(minLength int) *Policy {
	if minLength < 1 {
		minLength = defaultMinLength
	}
	return &Policy{minLength: minLength}
}

// Validate reports whether pw satisfies every rule. When it does not, reason
// holds a user-displayable message for the first failing rule.
func (p *Policy) Validate(pw string) (ok bool, reason string) {
	if len(pw) < p.minLength {
		return false, fmt.Sprintf("Password must be at least %d characters long", p.minLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(policySymbols, r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return false, "Password must contain at least one uppercase letter"
	case !hasLower:
		return false, "Password must contain at least one lowercase letter"
	case !hasDigit:
		return false, "Password must contain at least one number"
	case !hasSymbol:
		return false, "Password must contain at least one special character"
	}

	return true, "Password meets requirements"
}

package fieldcrypt

import "strings"

// Normalize identifies the canonicalization rule applied to a plaintext
// before its blind index is computed. The same rule must run at write time
// and at query time or equality lookups silently stop matching; declaring it
// in the registry is what keeps both sides in agreement.
type Normalize uint8

const (
	// NormalizeNone means the field has no normalization rule. Only valid
	// for fields without a blind index.
	NormalizeNone Normalize = iota

	// NormalizeDigitsOnly keeps ASCII digits and drops everything else.
	// "(11) 98888-7777" and "11988887777" canonicalize identically.
	NormalizeDigitsOnly

	// NormalizeTrimLower trims surrounding whitespace and lowercases.
	// Suitable for emails and other case-insensitive identifiers.
	NormalizeTrimLower
)

func (n Normalize) String() string {
	switch n {
	case NormalizeNone:
		return "none"
	case NormalizeDigitsOnly:
		return "digits_only"
	case NormalizeTrimLower:
		return "trim_lower"
	default:
		return "unknown"
	}
}

// Apply canonicalizes s according to the rule.
func (n Normalize) Apply(s string) string {
	switch n {
	case NormalizeDigitsOnly:
		var digits strings.Builder
		digits.Grow(len(s))
		for _, r := range s {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		return digits.String()
	case NormalizeTrimLower:
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return s
	}
}

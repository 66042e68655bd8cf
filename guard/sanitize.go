package guard

import (
	"strings"
	"unicode"
)

// MaxSearchLength bounds sanitized search text, in runes.
const MaxSearchLength = 100

// stripped have meaning in the remote filter syntax.
const stripped = "<>\"'`;-"

// SanitizeSearchText removes filter-syntax characters, collapses whitespace
// runs to a single space, trims, and clamps the result to MaxSearchLength
// runes. It is idempotent and never fails.
func SanitizeSearchText(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	space := false
	for _, r := range input {
		if strings.ContainsRune(stripped, r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	out := []rune(b.String())
	if len(out) > MaxSearchLength {
		out = out[:MaxSearchLength]
	}
	return strings.TrimSpace(string(out))
}

// SanitizeAny is SanitizeSearchText over arbitrary input. Anything that is
// not a string or *string sanitizes to the empty string.
func SanitizeAny(input any) string {
	switch v := input.(type) {
	case string:
		return SanitizeSearchText(v)
	case *string:
		if v == nil {
			return ""
		}
		return SanitizeSearchText(*v)
	default:
		return ""
	}
}

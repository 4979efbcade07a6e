package inspect

import (
	"strings"
	"unicode"
)

// NormalizeName folds a display name for lookups: letters and digits are
// kept in lower case, everything else is dropped. "Time Zone", "time-zone"
// and "timezone" all normalize to "timezone".
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// SameName reports whether two display names match after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

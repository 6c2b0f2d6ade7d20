// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeQuery prepares user text for a provider query: NFC composition,
// full-width ASCII folded to half-width, whitespace runs collapsed to one
// space, ends trimmed.
//
// Example:
//
//	NormalizeQuery("  Ｗａｔ　Ａｒｕｎ \n") returns "Wat Arun"
func NormalizeQuery(s string) string {
	if s == "" {
		return ""
	}
	s = width.Fold.String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes shortens s to at most maxRunes runes, replacing the tail
// with marker when it had to cut. The marker counts against maxRunes.
// Strings at or under the limit are returned unchanged.
func TruncateRunes(s string, maxRunes int, marker string) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	keep := maxRunes - utf8.RuneCountInString(marker)
	if keep <= 0 {
		return string([]rune(marker)[:maxRunes])
	}
	return string([]rune(s)[:keep]) + marker
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

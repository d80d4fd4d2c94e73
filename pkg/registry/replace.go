package registry

import (
	"strings"
	"unicode/utf8"
)

// ReplaceAllFold replaces every case-insensitive occurrence of old in s with
// replacement and reports how many were replaced. Text outside the matches is kept
// byte for byte. Matches do not overlap and are found left to right.
//
// When replacement itself contains old, applying the replacement a second time
// matches again inside the already rewritten text.
func ReplaceAllFold(s, old, replacement string) (string, int) {
	if old == "" || s == "" {
		return s, 0
	}

	var b strings.Builder
	count := 0
	for i := 0; i < len(s); {
		if n, ok := matchFold(s[i:], old); ok {
			b.WriteString(replacement)
			i += n
			count++
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	if count == 0 {
		return s, 0
	}
	return b.String(), count
}

// ContainsFold reports whether substr occurs in s ignoring case
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i < len(s); {
		if _, ok := matchFold(s[i:], substr); ok {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return false
}

// matchFold reports whether s starts with prefix under simple case folding
// and how many bytes of s the match spans
func matchFold(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && !strings.EqualFold(string(sr), string(pr)) {
			return 0, false
		}
		i += size
	}
	return i, true
}

package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Snippet collapses whitespace and cuts s to at most n runes, marking the cut with "…".
func Snippet(s string, n int) string {
	s = NormalizeWhitespace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// ShortenMiddle keeps the first and last keep runes of long identifiers (mints, wallets).
func ShortenMiddle(s string, keep int) string {
	r := []rune(s)
	if keep <= 0 || len(r) <= 2*keep {
		return s
	}
	return string(r[:keep]) + "…" + string(r[len(r)-keep:])
}

// Handle renders a username as @name, or "unknown" when empty.
func Handle(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return "unknown"
	}
	return "@" + username
}

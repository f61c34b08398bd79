package utils

import "strings"

// CollapseWhitespace trims s and replaces every run of whitespace with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsFold reports whether substr is within s, ignoring letter case
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// NormalizeKey lowercases and trims s for use as a lookup key
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FirstWordIn reports whether the first space-separated word of s is in words.
// words must be lowercase.
func FirstWordIn(s string, words map[string]struct{}) bool {
	first, _, _ := strings.Cut(s, " ")
	_, ok := words[strings.ToLower(first)]
	return ok
}

// TrimLeadingWords drops space-separated words from the front of s while they
// are in words. words must be lowercase.
func TrimLeadingWords(s string, words map[string]struct{}) string {
	for s != "" {
		first, rest, _ := strings.Cut(s, " ")
		if _, ok := words[strings.ToLower(first)]; !ok {
			return s
		}
		s = rest
	}
	return s
}

// Package ints provides helpers for pulling digit runs and fixed-width
// unsigned numbers out of text such as file names and timestamps.
package ints

import "strings"

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool { return c >= '0' && c <= '9' }

// DigitRuns returns every maximal run of ASCII digits in s, in order.
// It returns nil when s contains no digits.
func DigitRuns(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if IsDigit(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// FirstRun returns the first n digits of the first run of at least n
// consecutive digits in s.
func FirstRun(s string, n int) (string, bool) {
	for _, r := range DigitRuns(s) {
		if len(r) >= n {
			return r[:n], true
		}
	}
	return "", false
}

// StripNonDigits removes every character of s that is not an ASCII digit.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if IsDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Fixed parses s, which must consist only of ASCII digits, as an unsigned
// decimal. It reports false on an empty string, any non-digit or a value
// that does not fit in an int.
func Fixed(s string) (int, bool) {
	if s == "" || len(s) > 18 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if !IsDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

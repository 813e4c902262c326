// Package shquote quotes strings for safe interpolation into a POSIX shell
// command line.
package shquote

import "strings"

// Quote wraps s in single quotes, escaping embedded single quotes, unless s
// consists entirely of characters that need no quoting, in which case it is
// emitted bare.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if isBare(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isBare(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '_' || c == '.' || c == '/' || c == ':' || c == '=' || c == '@' || c == '-':
		default:
			return false
		}
	}
	return true
}

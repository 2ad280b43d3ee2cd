package signal

import "strings"

// Matches reports whether pattern matches name:
//
//   - "*" matches everything.
//   - a pattern ending in ":*" matches any name sharing that prefix
//     (the colon is part of the prefix).
//   - anything else must match name exactly.
//
// Matches is pure, total, and O(len(pattern)+len(name)).
func Matches(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(name, prefix+":")
	}
	return pattern == name
}

package core

import "strings"

// CleanString trims surrounding whitespace in `s` and optionally lowers it.
// Tenant slugs and lookup emails are cleaned with lower=true so comparisons
// stay case-insensitive.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

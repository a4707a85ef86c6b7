// Package util holds string helpers shared by the command parsers.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg trims surrounding quotes and unescapes doubled quotes inside.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(s))
}

// Package sanitizer normalizes raw form field values before validation.
package sanitizer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitize normalizes a single raw field value. Control characters are
// stripped (tab, newline, and carriage return are preserved), surrounding
// whitespace is trimmed, and the result is Unicode-normalized to NFC.
//
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(value string) string {
	// Strip before trimming so that whitespace exposed by removing a
	// control character still gets trimmed.
	stripped := strings.Map(dropControl, value)
	trimmed := strings.TrimSpace(stripped)
	return norm.NFC.String(trimmed)
}

// SanitizeOptional normalizes a field that may be absent. A nil input yields
// a nil result, not an error.
func SanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	s := Sanitize(*value)
	return &s
}

// SanitizeFields normalizes every value of a raw submission map. The input
// map is not modified.
func SanitizeFields(fields map[string]string) map[string]string {
	sanitized := make(map[string]string, len(fields))
	for name, value := range fields {
		sanitized[name] = Sanitize(value)
	}
	return sanitized
}

// dropControl maps ASCII control characters to -1 so strings.Map removes
// them. Tab (0x09), newline (0x0A), and carriage return (0x0D) pass through.
func dropControl(r rune) rune {
	switch {
	case r >= 0x00 && r <= 0x08:
		return -1
	case r == 0x0B || r == 0x0C:
		return -1
	case r >= 0x0E && r <= 0x1F:
		return -1
	case r == 0x7F:
		return -1
	}
	return r
}

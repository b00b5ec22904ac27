package sanitizer

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSanitizeTrimsWhitespace(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"surrounding spaces", "  hello  ", "hello"},
		{"surrounding tabs", "\thello\t", "hello"},
		{"surrounding newlines", "\nhello\n", "hello"},
		{"interior whitespace preserved", "hello\tworld\nagain", "hello\tworld\nagain"},
		{"empty", "", ""},
		{"only whitespace", "   \t\n  ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.input); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"null byte", "he\x00llo", "hello"},
		{"bell", "he\x07llo", "hello"},
		{"vertical tab", "he\x0bllo", "hello"},
		{"form feed", "he\x0cllo", "hello"},
		{"escape", "he\x1bllo", "hello"},
		{"delete", "he\x7fllo", "hello"},
		{"tab preserved", "he\tllo", "he\tllo"},
		{"newline preserved", "he\nllo", "he\nllo"},
		{"carriage return preserved", "he\rllo", "he\rllo"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.input); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// Whitespace hidden behind a control character must still be trimmed, or a
// second pass would change the result.
func TestSanitizeTrimsWhitespaceExposedByStripping(t *testing.T) {
	if got := Sanitize("\x00 hello"); got != "hello" {
		t.Errorf("Sanitize(%q) = %q, want %q", "\x00 hello", got, "hello")
	}
}

func TestSanitizeNormalizesToNFC(t *testing.T) {
	// "é" as 'e' followed by combining acute accent (NFD)
	decomposed := "café"
	composed := "café"

	if got := Sanitize(decomposed); got != composed {
		t.Errorf("Sanitize(%q) = %q, want composed form %q", decomposed, got, composed)
	}
}

func TestSanitizeOptional(t *testing.T) {
	if got := SanitizeOptional(nil); got != nil {
		t.Errorf("SanitizeOptional(nil) = %v, want nil", got)
	}

	input := "  hello  "
	got := SanitizeOptional(&input)
	if got == nil || *got != "hello" {
		t.Errorf("SanitizeOptional(%q) = %v, want %q", input, got, "hello")
	}
}

func TestSanitizeFields(t *testing.T) {
	raw := map[string]string{
		"name":    "  Alice  ",
		"message": "he\x00llo",
	}

	sanitized := SanitizeFields(raw)

	if sanitized["name"] != "Alice" {
		t.Errorf("name = %q, want %q", sanitized["name"], "Alice")
	}
	if sanitized["message"] != "hello" {
		t.Errorf("message = %q, want %q", sanitized["message"], "hello")
	}
	if raw["name"] != "  Alice  " {
		t.Error("SanitizeFields modified the input map")
	}
}

// For any input, applying Sanitize twice gives the same result as applying
// it once.
func TestSanitizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")

		once := Sanitize(input)
		twice := Sanitize(once)

		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	})
}

// Sanitized output never contains a stripped control character.
func TestSanitizeOutputFreeOfControlCharacters(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")

		out := Sanitize(input)

		for _, r := range out {
			if r == '\t' || r == '\n' || r == '\r' {
				continue
			}
			if r < 0x20 || r == 0x7F {
				t.Errorf("Sanitize(%q) = %q contains control character %U", input, out, r)
			}
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("Sanitize(%q) = %q has surrounding whitespace", input, out)
		}
	})
}

// Package validation applies field rules and spam-content scoring to
// sanitized form submissions.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default length limits per field, in characters.
const (
	DefaultMaxNameLength    = 100
	DefaultMaxEmailLength   = 255
	DefaultMaxMessageLength = 5000
	DefaultMaxSubjectLength = 200
)

// maxLinkCount is the number of links tolerated in a message before the
// submission is flagged.
const maxLinkCount = 3

// uppercaseMinLength is the message length above which an all-uppercase
// message is flagged.
const uppercaseMinLength = 50

// DefaultRequiredFields are the fields that must be present and non-empty.
var DefaultRequiredFields = []string{"name", "email", "message"}

// DefaultSpamPhrases is the phrase list checked against the message body,
// in order, stopping at the first match.
var DefaultSpamPhrases = []string{
	"click here",
	"free money",
	"viagra",
	"casino",
	"limited time offer",
	"act now",
	"100% free",
	"make money fast",
	"work from home",
	"congratulations you have won",
}

var (
	localPartRegex   = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)
	domainLabelRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
	tldRegex         = regexp.MustCompile(`^[A-Za-z]{2,}$`)
)

// Result accumulates every rule violation found in a submission. Valid is
// true iff Errors is empty; Warnings never block admission and exist only
// for observability.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Config holds the tunable validation rules.
type Config struct {
	RequiredFields   []string
	MaxNameLength    int
	MaxEmailLength   int
	MaxMessageLength int
	MaxSubjectLength int
	SpamPhrases      []string
}

// DefaultConfig returns the standard contact-form rules.
func DefaultConfig() Config {
	return Config{
		RequiredFields:   DefaultRequiredFields,
		MaxNameLength:    DefaultMaxNameLength,
		MaxEmailLength:   DefaultMaxEmailLength,
		MaxMessageLength: DefaultMaxMessageLength,
		MaxSubjectLength: DefaultMaxSubjectLength,
		SpamPhrases:      DefaultSpamPhrases,
	}
}

// Validator applies the configured rules to sanitized submissions.
type Validator struct {
	cfg Config
}

// New creates a validator. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Validator {
	def := DefaultConfig()
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = def.RequiredFields
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = def.MaxNameLength
	}
	if cfg.MaxEmailLength <= 0 {
		cfg.MaxEmailLength = def.MaxEmailLength
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.MaxSubjectLength <= 0 {
		cfg.MaxSubjectLength = def.MaxSubjectLength
	}
	if len(cfg.SpamPhrases) == 0 {
		cfg.SpamPhrases = def.SpamPhrases
	}
	return &Validator{cfg: cfg}
}

// Validate applies every rule to the sanitized fields and accumulates all
// violations into one result; it never short-circuits. Rule order: required
// fields, email format, length limits, spam scoring.
func (v *Validator) Validate(fields map[string]string) Result {
	var result Result

	for _, name := range v.cfg.RequiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s is required", name))
		}
	}

	if email := fields["email"]; email != "" && !ValidEmail(email) {
		result.Errors = append(result.Errors, "Email format is invalid")
	}

	result.Errors = append(result.Errors, v.checkLengths(fields)...)
	result.Warnings = v.scoreContent(fields["message"])

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidEmail reports whether the address matches the accepted
// local-part@domain shape: one "@", local part of letters, digits, dots,
// underscores, plus, and hyphen with no leading, trailing, or consecutive
// dots, hyphenated domain labels, and an alphabetic TLD.
func ValidEmail(email string) bool {
	at := strings.Count(email, "@")
	if at != 1 {
		return false
	}

	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]

	if local == "" || !localPartRegex.MatchString(local) {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}

	if strings.Contains(domain, "..") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !domainLabelRegex.MatchString(label) {
			return false
		}
	}
	return tldRegex.MatchString(labels[len(labels)-1])
}

func (v *Validator) checkLengths(fields map[string]string) []string {
	limits := []struct {
		field string
		max   int
		// optional fields are length-checked only when present
		optional bool
	}{
		{"name", v.cfg.MaxNameLength, false},
		{"email", v.cfg.MaxEmailLength, false},
		{"message", v.cfg.MaxMessageLength, false},
		{"subject", v.cfg.MaxSubjectLength, true},
	}

	var errs []string
	for _, l := range limits {
		value, ok := fields[l.field]
		if l.optional && (!ok || value == "") {
			continue
		}
		if utf8.RuneCountInString(value) > l.max {
			errs = append(errs, fmt.Sprintf("%s must not exceed %d characters", l.field, l.max))
		}
	}
	return errs
}

// scoreContent checks the message body for spam signals. These only ever
// produce warnings, never errors.
func (v *Validator) scoreContent(message string) []string {
	if message == "" {
		return nil
	}

	var warnings []string

	links := strings.Count(message, "http://") + strings.Count(message, "https://")
	if links > maxLinkCount {
		warnings = append(warnings, fmt.Sprintf("message contains %d links", links))
	}

	if utf8.RuneCountInString(message) > uppercaseMinLength &&
		message == strings.ToUpper(message) && message != strings.ToLower(message) {
		warnings = append(warnings, "message is written entirely in uppercase")
	}

	lower := strings.ToLower(message)
	for _, phrase := range v.cfg.SpamPhrases {
		if strings.Contains(lower, phrase) {
			warnings = append(warnings, fmt.Sprintf("message contains a suspicious phrase: %q", phrase))
			break
		}
	}

	return warnings
}

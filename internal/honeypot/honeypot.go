// Package honeypot detects automated submissions via decoy form fields.
//
// The decoy fields are rendered invisibly in the form; humans leave them
// empty while bots filling every input do not. A trapped submission must
// still receive an outwardly successful response so the defense is not
// revealed.
package honeypot

// DefaultFields is the decoy field list checked when none is configured.
var DefaultFields = []string{
	"website",
	"url",
	"homepage",
	"hp_field",
	"bot_field",
	"spam_check",
}

// Check reports whether a submission tripped a honeypot field.
type Check struct {
	Trapped bool
	// Field is the name of the first non-empty decoy field, empty when
	// Trapped is false.
	Field string
}

// Detector checks submissions against a fixed, ordered list of decoy fields.
type Detector struct {
	fields []string
}

// NewDetector creates a detector for the given decoy field names. An empty
// list falls back to DefaultFields.
func NewDetector(fields []string) *Detector {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Detector{fields: fields}
}

// Check inspects the submission fields in configured order and reports the
// first non-empty decoy field.
func (d *Detector) Check(fields map[string]string) Check {
	for _, name := range d.fields {
		if value, ok := fields[name]; ok && value != "" {
			return Check{Trapped: true, Field: name}
		}
	}
	return Check{}
}

// Package content builds the outbound notification message from sanitized
// submission fields.
package content

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Builder produces the HTML and plain-text bodies for an admitted
// submission. User-supplied values are stripped of any markup before being
// embedded, so a submission cannot inject HTML into the notification email.
type Builder struct {
	policy        *bluemonday.Policy
	subjectPrefix string
}

// NewBuilder creates a builder. The subject prefix is prepended to every
// subject line (e.g. "[Contact Form]").
func NewBuilder(subjectPrefix string) *Builder {
	return &Builder{
		policy:        bluemonday.StrictPolicy(),
		subjectPrefix: subjectPrefix,
	}
}

// Built is the rendered message content for one submission.
type Built struct {
	Subject string
	HTML    string
	Text    string
}

// Build renders the notification for the given submission. The core fields
// (name, email, subject, message) render in a fixed order, followed by the
// optional extras the form templates use (phone, company).
func (b *Builder) Build(submissionID string, fields map[string]string) Built {
	name := b.clean(fields["name"])
	email := b.clean(fields["email"])
	subject := b.clean(fields["subject"])
	message := b.clean(fields["message"])

	finalSubject := subject
	if finalSubject == "" {
		finalSubject = fmt.Sprintf("New contact form submission from %s", name)
	}
	if b.subjectPrefix != "" {
		finalSubject = b.subjectPrefix + " " + finalSubject
	}

	extra := b.extraFields(fields)

	return Built{
		Subject: finalSubject,
		HTML:    b.buildHTML(submissionID, name, email, message, extra),
		Text:    b.buildText(submissionID, name, email, message, extra),
	}
}

// renderedExtras are optional fields included in the notification when the
// form supplies them.
var renderedExtras = []string{"phone", "company"}

type extraField struct {
	name  string
	value string
}

func (b *Builder) extraFields(fields map[string]string) []extraField {
	var extras []extraField
	for _, name := range renderedExtras {
		if value := b.clean(fields[name]); value != "" {
			extras = append(extras, extraField{name: name, value: value})
		}
	}
	return extras
}

func (b *Builder) buildHTML(submissionID, name, email, message string, extra []extraField) string {
	var sb strings.Builder
	sb.WriteString("<h2>New contact form submission</h2>\n")
	sb.WriteString("<table>\n")
	writeRow := func(label, value string) {
		fmt.Fprintf(&sb, "<tr><th align=\"left\">%s</th><td>%s</td></tr>\n",
			html.EscapeString(label), html.EscapeString(value))
	}
	writeRow("Name", name)
	writeRow("Email", email)
	for _, f := range extra {
		writeRow(capitalize(f.name), f.value)
	}
	sb.WriteString("</table>\n")
	sb.WriteString("<h3>Message</h3>\n")
	fmt.Fprintf(&sb, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(message), "\n", "<br>\n"))
	fmt.Fprintf(&sb, "<hr>\n<p><small>Submission %s &middot; %s</small></p>\n",
		html.EscapeString(submissionID), time.Now().UTC().Format(time.RFC3339))
	return sb.String()
}

func (b *Builder) buildText(submissionID, name, email, message string, extra []extraField) string {
	var sb strings.Builder
	sb.WriteString("New contact form submission\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", name)
	fmt.Fprintf(&sb, "Email: %s\n", email)
	for _, f := range extra {
		fmt.Fprintf(&sb, "%s: %s\n", capitalize(f.name), f.value)
	}
	fmt.Fprintf(&sb, "\nMessage:\n%s\n", message)
	fmt.Fprintf(&sb, "\n--\nSubmission %s at %s\n", submissionID, time.Now().UTC().Format(time.RFC3339))
	return sb.String()
}

// clean strips any markup from a user-supplied value and unescapes the
// entities bluemonday leaves behind, yielding plain text.
func (b *Builder) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(b.policy.Sanitize(value)))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

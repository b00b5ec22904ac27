// Package audit writes one structured record per pipeline decision point.
//
// Records are append-only and correlate through the submission id and the
// client identity. Field dumps never include sensitive fields such as
// anything named like "password".
package audit

import (
	"log/slog"
	"time"

	"github.com/garpdev/form-server/internal/delivery"
	"github.com/garpdev/form-server/internal/logger"
	"github.com/garpdev/form-server/internal/ratelimit"
)

// Decision point names, one per pipeline stage outcome.
const (
	EventReceived         = "received"
	EventRateLimited      = "rate_limited"
	EventSpamDetected     = "spam_detected"
	EventValidationFailed = "validation_failed"
	EventProcessed        = "processed"
	EventEmailSent        = "email_sent"
	EventEmailFailed      = "email_failed"
	EventInternalError    = "internal_error"
)

// Sink records pipeline decisions to the structured log.
type Sink struct {
	log *slog.Logger
}

// NewSink creates an audit sink on top of the given logger.
func NewSink(log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{log: log.With(slog.String("component", "audit"))}
}

func (s *Sink) record(event, submissionID, clientID string, attrs ...slog.Attr) {
	base := []any{
		slog.String("event", event),
		slog.String("submission_id", submissionID),
		slog.String("client_id", clientID),
		slog.Time("timestamp", time.Now().UTC()),
	}
	for _, a := range attrs {
		base = append(base, a)
	}
	s.log.Info("form submission "+event, base...)
}

// Received records an inbound submission with its (redacted) field names
// and values.
func (s *Sink) Received(submissionID, clientID string, fields map[string]string) {
	params := make(map[string]string, len(fields))
	for name, value := range fields {
		if logger.Sensitive(name) {
			continue
		}
		params[name] = value
	}
	s.record(EventReceived, submissionID, clientID, slog.Any("params", params))
}

// RateLimited records a rejection with every breached window.
func (s *Sink) RateLimited(submissionID, clientID string, violations []ratelimit.Violation) {
	s.record(EventRateLimited, submissionID, clientID, slog.Any("violations", violations))
}

// SpamDetected records a honeypot trap. The submission still receives an
// outwardly successful response.
func (s *Sink) SpamDetected(submissionID, clientID, field string) {
	s.record(EventSpamDetected, submissionID, clientID, slog.String("honeypot_field", field))
}

// ValidationFailed records a rejection with the accumulated errors.
func (s *Sink) ValidationFailed(submissionID, clientID string, errors []string) {
	s.record(EventValidationFailed, submissionID, clientID, slog.Any("errors", errors))
}

// Processed records a submission that passed admission, with any spam
// warnings attached for observability.
func (s *Sink) Processed(submissionID, clientID string, warnings []string) {
	attrs := []slog.Attr{}
	if len(warnings) > 0 {
		attrs = append(attrs, slog.Any("warnings", warnings))
	}
	s.record(EventProcessed, submissionID, clientID, attrs...)
}

// EmailSent records a successful delivery.
func (s *Sink) EmailSent(submissionID, clientID, messageID string) {
	s.record(EventEmailSent, submissionID, clientID, slog.String("message_id", messageID))
}

// EmailFailed records a classified delivery failure.
func (s *Sink) EmailFailed(submissionID, clientID string, kind delivery.Kind, message string) {
	s.record(EventEmailFailed, submissionID, clientID,
		slog.String("error_kind", string(kind)),
		slog.String("error", message))
}

// InternalError records an unexpected fault caught at the pipeline
// boundary, with the stage reached for diagnosis.
func (s *Sink) InternalError(submissionID, clientID, stage string, err any) {
	s.record(EventInternalError, submissionID, clientID,
		slog.String("stage", stage),
		slog.Any("error", err))
}

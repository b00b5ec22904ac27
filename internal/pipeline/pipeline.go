// Package pipeline orchestrates the submission-admission sequence: rate
// check, honeypot check, validation, rate recording, and delivery.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/garpdev/form-server/internal/audit"
	"github.com/garpdev/form-server/internal/content"
	"github.com/garpdev/form-server/internal/delivery"
	"github.com/garpdev/form-server/internal/honeypot"
	"github.com/garpdev/form-server/internal/metrics"
	"github.com/garpdev/form-server/internal/ratelimit"
	"github.com/garpdev/form-server/internal/sanitizer"
	"github.com/garpdev/form-server/internal/stats"
	"github.com/garpdev/form-server/internal/validation"
)

// RejectReason enumerates why a submission was rejected before delivery.
type RejectReason string

const (
	RejectRateLimited RejectReason = "rate_limited"
	RejectValidation  RejectReason = "validation"
)

// DeliveryState is the terminal delivery disposition of a submission.
type DeliveryState string

const (
	// DeliveryNone means delivery was never reached (rejection or fault).
	DeliveryNone DeliveryState = "none"
	// DeliverySent means the provider accepted the message.
	DeliverySent DeliveryState = "sent"
	// DeliveryFailed means the single delivery attempt failed.
	DeliveryFailed DeliveryState = "failed"
	// DeliverySkipped means delivery is disabled by configuration, or the
	// submission was honeypot-trapped and must never be delivered.
	DeliverySkipped DeliveryState = "skipped"
)

// Result is the pipeline's decision for one submission.
type Result struct {
	SubmissionID string

	// Admitted is true for submissions that passed every check, and for
	// honeypot-trapped submissions, which must look admitted from the
	// outside.
	Admitted      bool
	Trapped       bool
	InternalError bool
	RejectReason  RejectReason

	RateCheck  ratelimit.CheckResult
	Validation validation.Result
	Warnings   []string

	Delivery          DeliveryState
	DeliveryMessageID string
	DeliveryErrorKind delivery.Kind
	DeliveryError     string
}

// Sender is the outbound delivery collaborator.
type Sender interface {
	Send(ctx context.Context, msg delivery.Message) (string, error)
}

// Builder produces message content for an admitted submission. The pipeline
// treats it as opaque and calls it exactly once per admitted submission.
type Builder interface {
	Build(submissionID string, fields map[string]string) content.Built
}

// Config holds the pipeline's delivery addressing.
type Config struct {
	DeliveryEnabled bool
	From            string
	To              string
	ReplyTo         string
}

// Pipeline wires the admission checks and the delivery client together.
type Pipeline struct {
	cfg       Config
	limiter   *ratelimit.Limiter
	detector  *honeypot.Detector
	validator *validation.Validator
	builder   Builder
	sender    Sender
	audit     *audit.Sink
	stats     *stats.Counters
}

// New creates a pipeline. Sender may be nil when delivery is disabled.
func New(cfg Config, limiter *ratelimit.Limiter, detector *honeypot.Detector,
	validator *validation.Validator, builder Builder, sender Sender,
	sink *audit.Sink, counters *stats.Counters) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		limiter:   limiter,
		detector:  detector,
		validator: validator,
		builder:   builder,
		sender:    sender,
		audit:     sink,
		stats:     counters,
	}
}

// Process runs one submission through the admission sequence and, when
// admitted, through the single delivery attempt. It never panics: any
// unexpected fault is caught at this boundary, audited with the stage
// reached, and converted to an internal-error result.
func (p *Pipeline) Process(ctx context.Context, clientID string, rawFields map[string]string) (result Result) {
	result.SubmissionID = newSubmissionID()
	result.Delivery = DeliveryNone
	stage := "received"

	defer func() {
		if r := recover(); r != nil {
			p.audit.InternalError(result.SubmissionID, clientID, stage, r)
			result = Result{
				SubmissionID:  result.SubmissionID,
				InternalError: true,
				Delivery:      DeliveryNone,
			}
		}
	}()

	metrics.SubmissionsReceived.Inc()
	p.stats.Received()
	p.audit.Received(result.SubmissionID, clientID, rawFields)

	fields := sanitizer.SanitizeFields(rawFields)

	stage = "rate_check"
	result.RateCheck = p.limiter.Check(clientID)
	if !result.RateCheck.Allowed {
		for _, v := range result.RateCheck.Violations {
			metrics.RateLimitViolations.WithLabelValues(v.Window).Inc()
		}
		metrics.SubmissionsRejected.WithLabelValues(string(RejectRateLimited)).Inc()
		p.stats.Rejected()
		p.audit.RateLimited(result.SubmissionID, clientID, result.RateCheck.Violations)
		result.RejectReason = RejectRateLimited
		return result
	}

	stage = "honeypot"
	if hp := p.detector.Check(fields); hp.Trapped {
		// The bot gets the same response as a legitimate submitter, but
		// nothing is delivered and no rate-limit slot is consumed, so the
		// trap neither reveals itself nor distorts legitimate accounting.
		metrics.HoneypotTrapped.Inc()
		p.stats.Trapped()
		p.audit.SpamDetected(result.SubmissionID, clientID, hp.Field)
		result.Admitted = true
		result.Trapped = true
		result.Delivery = DeliverySkipped
		return result
	}

	stage = "validation"
	result.Validation = p.validator.Validate(fields)
	result.Warnings = result.Validation.Warnings
	if !result.Validation.Valid {
		metrics.SubmissionsRejected.WithLabelValues(string(RejectValidation)).Inc()
		p.stats.Rejected()
		p.audit.ValidationFailed(result.SubmissionID, clientID, result.Validation.Errors)
		result.RejectReason = RejectValidation
		return result
	}

	stage = "admitted"
	p.limiter.Record(clientID)
	metrics.SubmissionsAdmitted.Inc()
	p.stats.Admitted()
	p.audit.Processed(result.SubmissionID, clientID, result.Warnings)
	result.Admitted = true

	stage = "delivery"
	if !p.cfg.DeliveryEnabled || p.sender == nil {
		result.Delivery = DeliverySkipped
		return result
	}

	built := p.builder.Build(result.SubmissionID, fields)
	msg := delivery.Message{
		To:      []string{p.cfg.To},
		From:    p.cfg.From,
		Subject: built.Subject,
		HTML:    built.HTML,
		Text:    built.Text,
	}
	if email := fields["email"]; validation.ValidEmail(email) {
		msg.ReplyTo = []string{email}
	} else if p.cfg.ReplyTo != "" {
		msg.ReplyTo = []string{p.cfg.ReplyTo}
	}

	start := time.Now()
	messageID, err := p.sender.Send(ctx, msg)
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// A delivery failure degrades the response but never fails the
		// admission; the submission stays admitted.
		result.Delivery = DeliveryFailed
		if de, ok := delivery.AsError(err); ok {
			result.DeliveryErrorKind = de.Kind
			result.DeliveryError = de.Message
		} else {
			result.DeliveryError = err.Error()
		}
		metrics.DeliveryAttempts.WithLabelValues(outcomeLabel(result.DeliveryErrorKind)).Inc()
		p.stats.DeliveryFailed()
		p.audit.EmailFailed(result.SubmissionID, clientID, result.DeliveryErrorKind, result.DeliveryError)
		return result
	}

	result.Delivery = DeliverySent
	result.DeliveryMessageID = messageID
	metrics.DeliveryAttempts.WithLabelValues("sent").Inc()
	p.stats.Delivered()
	p.audit.EmailSent(result.SubmissionID, clientID, messageID)
	return result
}

func outcomeLabel(kind delivery.Kind) string {
	if kind == "" {
		return "error"
	}
	return string(kind)
}

func newSubmissionID() string {
	return "sub_" + uuid.NewString()
}

// Package submission exposes the form submission HTTP endpoint and renders
// pipeline decisions as JSON envelopes.
package submission

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/garpdev/form-server/internal/pipeline"
	"github.com/garpdev/form-server/internal/ratelimit"
)

// maxBodyBytes bounds the accepted request body.
const maxBodyBytes = 1 << 20

// Handler serves POST /submit.
type Handler struct {
	pipeline        *pipeline.Pipeline
	deliveryEnabled bool
	log             *slog.Logger
}

// NewHandler creates the submission handler. deliveryEnabled shapes the
// response a honeypot-trapped submission receives, so that it is
// indistinguishable from a legitimate one.
func NewHandler(p *pipeline.Pipeline, deliveryEnabled bool, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{pipeline: p, deliveryEnabled: deliveryEnabled, log: log}
}

// successResponse is the envelope for accepted submissions.
type successResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	EmailSent bool   `json:"email_sent"`
	// EmailError carries the delivery failure classification when the
	// admission succeeded but the notification could not be sent.
	EmailError string `json:"email_error,omitempty"`
}

// errorResponse is the envelope for rejected or failed submissions.
type errorResponse struct {
	Status     string                `json:"status"`
	Message    string                `json:"message"`
	Timestamp  string                `json:"timestamp"`
	Errors     []string              `json:"errors,omitempty"`
	Violations []ratelimit.Violation `json:"violations,omitempty"`
}

// Submit handles one form submission.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(w, r)
	if err != nil {
		h.log.Warn("Rejected submission with unparsable body",
			slog.String("client_ip", clientIP(r)),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:    "error",
			Message:   "Invalid JSON in request body",
			Timestamp: now(),
		})
		return
	}

	result := h.pipeline.Process(r.Context(), clientIP(r), fields)

	switch {
	case result.InternalError:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:    "error",
			Message:   "Internal server error",
			Timestamp: now(),
		})

	case result.RejectReason == pipeline.RejectRateLimited:
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Status:     "error",
			Message:    "Too many submissions. Please try again later.",
			Timestamp:  now(),
			Violations: result.RateCheck.Violations,
		})

	case result.RejectReason == pipeline.RejectValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:    "error",
			Message:   "Validation failed",
			Timestamp: now(),
			Errors:    result.Validation.Errors,
		})

	default:
		writeJSON(w, http.StatusOK, h.successEnvelope(result))
	}
}

// successEnvelope renders an admitted submission. A honeypot-trapped
// submission reports exactly what a legitimate one would, so the response
// never reveals the trap.
func (h *Handler) successEnvelope(result pipeline.Result) successResponse {
	resp := successResponse{
		Status:    "success",
		Message:   "Form submission received",
		Timestamp: now(),
		ID:        result.SubmissionID,
	}

	if result.Trapped {
		resp.EmailSent = h.deliveryEnabled
		return resp
	}

	switch result.Delivery {
	case pipeline.DeliverySent:
		resp.EmailSent = true
	case pipeline.DeliveryFailed:
		resp.EmailError = string(result.DeliveryErrorKind)
	}
	return resp
}

// parseBody decodes the request body into a flat field map. Browser-native
// form-encoded posts are accepted alongside JSON; JSON scalar values are
// stringified and nulls are treated as absent fields.
func parseBody(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/x-www-form-urlencoded" {
		return parseFormBody(r)
	}

	decoder := json.NewDecoder(r.Body)

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			fields[name] = v
		case float64:
			fields[name] = formatNumber(v)
		case bool:
			fields[name] = fmt.Sprintf("%t", v)
		default:
			// Nested structures have no field semantics; ignore them.
			continue
		}
	}
	return fields, nil
}

// parseFormBody flattens a form-encoded body, taking the first value of any
// repeated field.
func parseFormBody(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.PostForm))
	for name, values := range r.PostForm {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	return fields, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// clientIP extracts the client identity used for rate-limit bucketing. The
// RealIP middleware has already resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Package delivery sends built messages to the transactional-email provider
// over HTTPS and classifies provider responses and transport failures into a
// closed error taxonomy.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultEndpoint is the provider's message endpoint.
const DefaultEndpoint = "https://api.resend.com/emails"

// DefaultTimeout bounds the single synchronous send attempt.
const DefaultTimeout = 10 * time.Second

// maxErrorBodyBytes limits how much of an unexpected provider response is
// carried into the error message.
const maxErrorBodyBytes = 512

// Kind identifies one class of delivery failure.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindValidationError   Kind = "validation_error"
	KindRateLimited       Kind = "rate_limited"
	KindProviderError     Kind = "provider_error"
	KindTimeout           Kind = "timeout"
	KindNetworkError      Kind = "network_error"
	KindMalformedResponse Kind = "malformed_response"
)

// Error is a classified delivery failure. Callers switch on Kind rather
// than parsing messages.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("delivery %s: %s", e.Kind, e.Message)
}

// AsError unwraps a classified delivery error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// Message is one outbound email. At least one of HTML and Text must be set;
// violating that is a caller bug, not a runtime classification.
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	Text    string
	ReplyTo []string
}

// sendRequest is the provider's wire schema.
type sendRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo []string `json:"reply_to,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Config holds the provider connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client issues single synchronous send attempts against the provider. It
// performs no retries, backoff, or queueing.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a delivery client. An empty endpoint uses the provider
// default; a zero timeout uses DefaultTimeout.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send posts the message to the provider and returns the provider message
// id. Any failure is returned as a *Error with a Kind from the closed
// taxonomy, except the missing-body precondition which is a plain error.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if msg.HTML == "" && msg.Text == "" {
		return "", errors.New("delivery: message needs an html or text body")
	}

	payload, err := json.Marshal(sendRequest{
		To:      msg.To,
		From:    msg.From,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("delivery: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}

	return classifyResponse(resp.StatusCode, body)
}

// classifyResponse maps the provider's status code and body onto the error
// taxonomy.
func classifyResponse(status int, body []byte) (string, error) {
	switch status {
	case http.StatusOK, http.StatusCreated:
		var ok sendResponse
		if len(body) > 0 {
			if err := json.Unmarshal(body, &ok); err != nil {
				return "", &Error{
					Kind:       KindMalformedResponse,
					Message:    "provider returned unparsable success body",
					StatusCode: status,
				}
			}
		}
		return ok.ID, nil

	case http.StatusBadRequest:
		return "", providerMessageError(KindBadRequest, status, body, "provider rejected the request")

	case http.StatusUnauthorized:
		return "", &Error{
			Kind:       KindUnauthorized,
			Message:    "provider rejected the API key",
			StatusCode: status,
		}

	case http.StatusUnprocessableEntity:
		return "", providerMessageError(KindValidationError, status, body, "provider rejected the message content")

	case http.StatusTooManyRequests:
		return "", &Error{
			Kind:       KindRateLimited,
			Message:    "provider rate limit exceeded",
			StatusCode: status,
		}

	default:
		return "", &Error{
			Kind:       KindProviderError,
			Message:    fmt.Sprintf("unexpected provider response: %s", truncate(body)),
			StatusCode: status,
		}
	}
}

// providerMessageError builds an error carrying the provider-supplied
// message when the body parses, the fallback when the body is empty, and a
// malformed-response error when the body is present but unparsable.
func providerMessageError(kind Kind, status int, body []byte, fallback string) *Error {
	if len(body) == 0 {
		return &Error{Kind: kind, Message: fallback, StatusCode: status}
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return &Error{
			Kind:       KindMalformedResponse,
			Message:    "provider returned unparsable error body",
			StatusCode: status,
		}
	}
	if er.Message == "" {
		er.Message = fallback
	}
	return &Error{Kind: kind, Message: er.Message, StatusCode: status}
}

// classifyTransportError distinguishes timeouts from other network-level
// failures (DNS, connection refused).
func classifyTransportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	return &Error{Kind: KindNetworkError, Message: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// http.Client wraps its own deadline error without a typed cause.
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes] + "..."
	}
	return s
}

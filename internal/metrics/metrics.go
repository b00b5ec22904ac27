// Package metrics exposes Prometheus metrics for the form server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "formserver",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "formserver",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

var (
	// SubmissionsReceived counts inbound submissions before any check runs.
	SubmissionsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "submissions",
			Name:      "received_total",
			Help:      "Total number of form submissions received",
		},
	)

	// SubmissionsAdmitted counts submissions that passed every check.
	SubmissionsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "submissions",
			Name:      "admitted_total",
			Help:      "Total number of form submissions admitted for delivery",
		},
	)

	// SubmissionsRejected counts rejections by reason.
	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "submissions",
			Name:      "rejected_total",
			Help:      "Total number of form submissions rejected by reason",
		},
		[]string{"reason"},
	)

	// HoneypotTrapped counts submissions caught by a decoy field.
	HoneypotTrapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "submissions",
			Name:      "honeypot_trapped_total",
			Help:      "Total number of submissions caught by a honeypot field",
		},
	)

	// RateLimitViolations counts breached windows by window name.
	RateLimitViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "ratelimit",
			Name:      "violations_total",
			Help:      "Total number of rate-limit window violations by window",
		},
		[]string{"window"},
	)
)

var (
	// DeliveryAttempts counts delivery attempts by outcome ("sent" or the
	// delivery error kind).
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "formserver",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	// DeliveryDuration measures the provider round-trip in seconds.
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "formserver",
			Subsystem: "delivery",
			Name:      "duration_seconds",
			Help:      "Delivery provider round-trip duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := getRoutePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// getRoutePattern returns the chi route pattern for consistent labeling,
// falling back to the URL path.
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

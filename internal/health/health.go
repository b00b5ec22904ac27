// Package health provides the service-info and health check endpoints.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/garpdev/form-server/internal/ratelimit"
	"github.com/garpdev/form-server/internal/stats"
)

// InfoResponse is the root endpoint's service description, matching what
// form clients probe before enabling the contact form.
type InfoResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is the detailed health endpoint's body.
type HealthResponse struct {
	Status           string         `json:"status"`
	Timestamp        string         `json:"timestamp"`
	UptimeSeconds    float64        `json:"uptime_seconds"`
	DeliveryEnabled  bool           `json:"delivery_enabled"`
	RateLimitClients int            `json:"rate_limit_clients"`
	Submissions      stats.Snapshot `json:"submissions"`
	Ready            bool           `json:"ready"`
}

// Handler serves the health endpoints.
type Handler struct {
	version         string
	deliveryEnabled bool
	limiter         *ratelimit.Limiter
	counters        *stats.Counters
	start           time.Time

	mu    sync.RWMutex
	ready bool
}

// Config holds health handler dependencies.
type Config struct {
	Version         string
	DeliveryEnabled bool
	Limiter         *ratelimit.Limiter
	Counters        *stats.Counters
}

// NewHandler creates a health handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Handler{
		version:         cfg.Version,
		deliveryEnabled: cfg.DeliveryEnabled,
		limiter:         cfg.Limiter,
		counters:        cfg.Counters,
		start:           time.Now(),
		ready:           true,
	}
}

// SetReady flips the readiness state, used during graceful shutdown.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Handler) isReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Info handles GET /, the service information endpoint.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Status:    "healthy",
		Service:   "form-server",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Endpoints: map[string]string{
			"submit":  "/submit",
			"health":  "/health",
			"stats":   "/stats",
			"metrics": "/metrics",
		},
	})
}

// Health handles GET /health with operational detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ready := h.isReady()
	status := "healthy"
	code := http.StatusOK
	if !ready {
		status = "shutting_down"
		code = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:          status,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:   time.Since(h.start).Seconds(),
		DeliveryEnabled: h.deliveryEnabled,
		Ready:           ready,
	}
	if h.limiter != nil {
		resp.RateLimitClients = h.limiter.ClientCount()
	}
	if h.counters != nil {
		resp.Submissions = h.counters.Snapshot()
	}

	writeJSON(w, code, resp)
}

// Stats handles GET /stats with the submission counters since start.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var snapshot stats.Snapshot
	if h.counters != nil {
		snapshot = h.counters.Snapshot()
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

package submission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the form submission endpoint.
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Post("/submit", handler.Submit)
}

// MethodNotAllowed is the router-level 405 handler, kept JSON like every
// other response.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Status:    "error",
		Message:   "Method " + r.Method + " not allowed for " + r.URL.Path,
		Timestamp: now(),
	})
}

// NotFound is the router-level 404 handler.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Status:    "error",
		Message:   "Endpoint not found",
		Timestamp: now(),
	})
}

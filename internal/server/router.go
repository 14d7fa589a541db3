// Package server wires the bridge's HTTP routes.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devicepulse/devicepulse/internal/handlers"
	"github.com/devicepulse/devicepulse/internal/middleware"
)

// NewRouter constructs a ServeMux with the bridge routes registered.
func NewRouter(h *handlers.CallbackHandler) http.Handler {
	mux := http.NewServeMux()

	// Device-management webhook endpoint
	mux.HandleFunc("/callback", h.HandleCallback)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

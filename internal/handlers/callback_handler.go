// Package handlers exposes the bridge's HTTP surface: the device-management
// callback endpoint and the health probes.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devicepulse/devicepulse/internal/callback"
	"github.com/devicepulse/devicepulse/internal/dispatch"
	"github.com/devicepulse/devicepulse/internal/logging"
	"github.com/devicepulse/devicepulse/internal/metrics"
	"github.com/devicepulse/devicepulse/internal/ratelimit"
	"github.com/devicepulse/devicepulse/internal/storage"
)

const defaultMaxBodySize = 1 << 20

// CallbackHandler accepts webhook callbacks and forwards them through the
// dispatcher. The endpoint accepts PUT only; every other method is rejected
// before any work happens.
type CallbackHandler struct {
	dispatcher  *dispatch.Dispatcher
	engine      storage.Engine
	limiter     ratelimit.RateLimiter
	logger      *logging.Logger
	maxBodySize int64
}

// NewCallbackHandler creates the handler. limiter may be nil when rate
// limiting is disabled; maxBodySize falls back to 1 MiB when not positive.
func NewCallbackHandler(dispatcher *dispatch.Dispatcher, engine storage.Engine, limiter ratelimit.RateLimiter, logger *logging.Logger, maxBodySize int64) *CallbackHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &CallbackHandler{
		dispatcher:  dispatcher,
		engine:      engine,
		limiter:     limiter,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// CallbackResponse is the JSON acknowledgment for a processed callback.
type CallbackResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
}

// HandleCallback processes one webhook delivery. Success is acknowledged with
// a 200 JSON body; any failure is a 400 with the error as plain body text.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPut {
		h.logger.DebugContext(ctx, "rejected callback",
			logging.Method(r.Method),
			logging.IP(getClientIP(r)))
		http.Error(w, fmt.Sprintf("unsupported method: %s", r.Method), http.StatusBadRequest)
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, getClientIP(r))
		if err != nil {
			// Limiter trouble must not block deliveries
			h.logger.WarnContext(ctx, "rate limiter unavailable", logging.Error(err))
		} else if !allowed {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body) == 0 {
		http.Error(w, "empty request body", http.StatusBadRequest)
		return
	}

	metrics.CallbackBytesTotal.Add(float64(len(body)))

	result, err := h.dispatcher.Dispatch(ctx, body)
	if err != nil {
		kind := string(callback.KindUnknown)
		if result != nil {
			kind = string(result.Kind)
		}
		metrics.CallbacksTotal.WithLabelValues(kind, "failed").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics.CallbacksTotal.WithLabelValues(string(result.Kind), "ok").Inc()
	h.sendSuccess(w, result)
}

// Health reports process liveness.
func (h *CallbackHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// Ready reports whether the search engine is reachable.
func (h *CallbackHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := h.engine.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status": "ready",
		"engine": h.engine.Name(),
	})
}

func (h *CallbackHandler) sendSuccess(w http.ResponseWriter, result *dispatch.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CallbackResponse{
		Status:  "ok",
		Kind:    string(result.Kind),
		Records: result.Records,
	})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

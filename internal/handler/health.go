// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker reports whether a connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db   Pinger
	nats ConnectionChecker
}

// NewHealthHandler creates a new health handler. nats may be nil when event
// publishing is disabled.
func NewHealthHandler(db Pinger, nats ConnectionChecker) *HealthHandler {
	return &HealthHandler{
		db:   db,
		nats: nats,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	if h.nats != nil && !h.nats.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

package handler

import (
	"context"
	"net/http"
	"time"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
	now   func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
// Pass a nil db when the service runs on the in-memory store, and a nil
// cache when Redis is not configured.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
		now:   time.Now,
	}
}

// HealthResponse represents the liveness response.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents the readiness response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Message  string `json:"message,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

// Health is a liveness probe endpoint.
// It always returns 200 and reports which store the process selected.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	database := "disconnected"
	if h.db != nil {
		database = "connected"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Database:  database,
		Timestamp: h.now().UTC().Format(timestampLayout),
	})
}

// Ready is a readiness probe endpoint.
// It returns 200 only when the relational store was selected and still
// answers a ping. Cache state is reported but never fails readiness.
//
// GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not ready",
			Message: "Database not connected",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not ready",
			Message: "Database not reachable: " + err.Error(),
		})
		return
	}

	response := ReadyResponse{
		Status:   "ready",
		Database: "connected",
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			response.Cache = "error: " + err.Error()
		} else {
			response.Cache = "ok"
		}
	}

	writeJSON(w, http.StatusOK, response)
}

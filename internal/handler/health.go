// Package handler turns HTTP requests into service calls and service results
// into JSON.
//
// Handlers parse the path, query and body, call exactly one service method,
// and answer through writeJSON or writeError. They hold no business rules;
// the signed-in user, when there is one, comes from the auth middleware.
package handler

import (
	"log/slog"
	"net/http"
)

// Pinger is anything whose liveness can be checked, in practice the database.
type Pinger interface {
	Ping() error
}

// HealthHandler answers liveness checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth reports whether the database answers.
//
// HTTP: GET /healthz → 200 {"status":"ok"} or 503
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"context"
	"net/http"

	"github.com/renunganku/api/internal/model"
)

// StatusReporter builds the system status document
type StatusReporter interface {
	Status(ctx context.Context) *model.SystemStatus
}

// StatusHandler serves health endpoints
type StatusHandler struct {
	reporter StatusReporter
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(reporter StatusReporter) *StatusHandler {
	return &StatusHandler{reporter: reporter}
}

// RegisterRoutes registers status routes
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux, _ Guards) {
	mux.HandleFunc("GET /v1/system-status", h.SystemStatus)
	mux.HandleFunc("GET /health", h.Health)
}

// SystemStatus handles GET /v1/system-status. A degraded system still
// answers 200 so dashboards can render the component details.
func (h *StatusHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.reporter.Status(r.Context()))
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": model.StatusOK})
}

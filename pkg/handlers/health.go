package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Service   string   `json:"service"`
	GoVersion string   `json:"go_version"`
	Hostname  string   `json:"hostname"`
	Providers []string `json:"providers"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	version   string
	providers []string
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. providers is the gateway's
// configured fallback chain, surfaced for operational visibility.
func NewHealthHandler(version string, providers []string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{version: version, providers: providers, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and provider chain.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:    "ok",
		Version:   h.version,
		Service:   "data-dictionary-system",
		GoVersion: runtime.Version(),
		Hostname:  hostname,
		Providers: h.providers,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

package handlers

import (
	"net/http"
	"runtime"
	"time"

	"fingerprinter/internal/logging"
	"fingerprinter/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Store summary
	TotalFiles  int    `json:"totalFiles"`
	TotalHashes int    `json:"totalHashes"`
	LastRun     string `json:"lastRun,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports whether the store can be queried.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	stats, err := h.store.CalculateStats(r.Context())
	if err != nil {
		logging.Warn("Health check failed to query store: %v", err)
		response.Status = statusDegraded
		response.Error = "store unavailable"
	} else {
		response.TotalFiles = stats.TotalFiles
		response.TotalHashes = stats.TotalHashes
		if !stats.LastRun.IsZero() {
			response.LastRun = stats.LastRun.Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

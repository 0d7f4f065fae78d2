package server

import (
	"net/http"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Tracks    int                    `json:"trackCount"`
	Playlists int                    `json:"playlistCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ms *MusicServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Details:   make(map[string]interface{}),
	}

	if err := ms.db.Ping(r.Context()); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else if stats, err := ms.db.Stats(r.Context()); err != nil {
		health.Details["count_error"] = err.Error()
	} else {
		health.Tracks = stats.Tracks
		health.Playlists = stats.Playlists
	}

	if err := ms.local.Check(); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	if url := ms.ngrokService.PublicURL(); url != "" {
		health.Details["public_url"] = url
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	ms.respondJSON(w, statusCode, health)
}

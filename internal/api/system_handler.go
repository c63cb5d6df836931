package api

import (
	"net/http"

	"github.com/sfzman/indextts-server/internal/api/shared"
)

// RunnerStatus exposes the readiness and load of the task runner.
type RunnerStatus interface {
	IsEngineReady() bool
	ActiveCount() int
	QueueLen() int
	QueueCap() int
}

// MetricsSource provides job counters.
type MetricsSource interface {
	GetSnapshot() map[string]int64
}

// SystemHandler serves health and metrics endpoints.
type SystemHandler struct {
	runner  RunnerStatus
	metrics MetricsSource
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(runner RunnerStatus, metrics MetricsSource) *SystemHandler {
	return &SystemHandler{runner: runner, metrics: metrics}
}

// Health handles GET /health. The server reports healthy while degraded;
// model_loaded tells callers whether submissions will be accepted.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:        "healthy",
		ModelLoaded:   h.runner.IsEngineReady(),
		PendingTasks:  h.runner.ActiveCount(),
		QueueLength:   h.runner.QueueLen(),
		QueueCapacity: h.runner.QueueCap(),
	})
}

// Metrics handles GET /metrics
func (h *SystemHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]int64{}
	if h.metrics != nil {
		for k, v := range h.metrics.GetSnapshot() {
			snapshot[k] = v
		}
	}
	snapshot["active_tasks"] = int64(h.runner.ActiveCount())
	snapshot["queue_length"] = int64(h.runner.QueueLen())

	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

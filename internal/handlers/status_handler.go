package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
	"github.com/quotienthq/quotient/internal/queue"
)

// StatusHandler reports application status: version, active provider, queue
// depth, and job counts.
type StatusHandler struct {
	queueService *queue.Service
	jobs         interfaces.JobStorage
	chat         interfaces.ChatProvider
	embedder     interfaces.Embedder
	logger       arbor.ILogger
}

func NewStatusHandler(queueService *queue.Service, jobs interfaces.JobStorage, chat interfaces.ChatProvider, embedder interfaces.Embedder, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		queueService: queueService,
		jobs:         jobs,
		chat:         chat,
		embedder:     embedder,
		logger:       logger,
	}
}

// GetStatusHandler handles GET /api/status.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	depth, err := h.queueService.Depth(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read queue depth")
	}

	counts := map[string]int{}
	for _, status := range []models.JobStatus{
		models.JobStatusQueued,
		models.JobStatusActive,
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		if n, err := h.jobs.CountByStatus(ctx, status); err == nil {
			counts[string(status)] = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":           common.GetVersion(),
		"provider":          h.chat.ProviderName(),
		"model":             h.chat.ModelName(),
		"embedding_enabled": h.embedder.IsEnabled(),
		"embedding_model":   h.embedder.ModelName(),
		"queue_depth":       depth,
		"jobs":              counts,
	})
}

// HealthHandler handles GET /api/health.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/models"
	"github.com/quotienthq/quotient/internal/queue"
	"github.com/quotienthq/quotient/internal/services/settings"
)

// EstimateHandler accepts estimate-generation submissions.
type EstimateHandler struct {
	queueService *queue.Service
	pipeline     *queue.Pipeline
	settings     *settings.Service
	logger       arbor.ILogger
}

func NewEstimateHandler(queueService *queue.Service, pipeline *queue.Pipeline, settingsService *settings.Service, logger arbor.ILogger) *EstimateHandler {
	return &EstimateHandler{
		queueService: queueService,
		pipeline:     pipeline,
		settings:     settingsService,
		logger:       logger,
	}
}

// applyMatchDefaults fills threshold options the caller left unset from
// stored settings. Request values always win.
func (h *EstimateHandler) applyMatchDefaults(ctx context.Context, opts *models.MatchOptions) {
	if h.settings == nil {
		return
	}
	if opts.HardThreshold == 0 {
		opts.HardThreshold = h.settings.GetFloat(ctx, settings.KeyHardThreshold, 0)
	}
	if opts.SoftThreshold == 0 {
		opts.SoftThreshold = h.settings.GetFloat(ctx, settings.KeySoftThreshold, 0)
	}
}

// submitRequest is the submission payload. Sync requests the legacy
// synchronous mode: the pipeline runs in the request and the result comes
// back immediately instead of a job id.
type submitRequest struct {
	models.GenerationRequest
	Sync bool `json:"sync,omitempty"`
}

// GenerateHandler handles POST /api/estimates/generate.
func (h *EstimateHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Assessment.IsEmpty() {
		writeError(w, http.StatusBadRequest, "assessment is required")
		return
	}
	if req.Phase != "" && req.Phase != models.PhaseScope && req.Phase != models.PhaseDraft {
		writeError(w, http.StatusBadRequest, "phase must be \"scope\" or \"draft\"")
		return
	}

	h.applyMatchDefaults(r.Context(), &req.Options)

	if req.Sync {
		h.generateSync(w, r, &req.GenerationRequest)
		return
	}

	job, err := h.queueService.Enqueue(r.Context(), req.GenerationRequest)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to enqueue generation job")
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// syncResponseDeadline bounds the inline pipeline run; the server's default
// write timeout is far too short for multiple provider round trips.
const syncResponseDeadline = 5 * time.Minute

// generateSync runs the pipeline inline and returns the sealed result.
func (h *EstimateHandler) generateSync(w http.ResponseWriter, r *http.Request, req *models.GenerationRequest) {
	// Recorders and proxies that cannot move the deadline keep their own.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(syncResponseDeadline))

	job, result, err := h.queueService.RunSync(r.Context(), *req, h.pipeline)
	if err != nil {
		h.logger.Error().Err(err).Msg("Synchronous generation failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.ID,
		"result": result,
	})
}

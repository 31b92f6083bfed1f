package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
	"github.com/quotienthq/quotient/internal/queue"
)

// JobHandler serves the poll-based job status interface.
type JobHandler struct {
	queueService *queue.Service
	logger       arbor.ILogger
}

func NewJobHandler(queueService *queue.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queueService: queueService,
		logger:       logger,
	}
}

// statusResponse is the status read model exposed to pollers.
type statusResponse struct {
	ID         string                   `json:"id"`
	State      models.JobStatus         `json:"state"`
	Phase      string                   `json:"phase"`
	Progress   int                      `json:"progress"`
	Attempts   int                      `json:"attempts,omitempty"`
	Result     *models.GenerationResult `json:"result,omitempty"`
	FailReason string                   `json:"fail_reason,omitempty"`
	Timestamp  time.Time                `json:"timestamp"`
}

func toStatusResponse(job *models.Job) statusResponse {
	resp := statusResponse{
		ID:         job.ID,
		State:      job.Status,
		Phase:      job.Phase,
		Progress:   job.Progress,
		Attempts:   job.Attempts,
		Result:     job.Result,
		FailReason: job.Error,
		Timestamp:  job.CreatedAt,
	}
	if job.CompletedAt != nil {
		resp.Timestamp = *job.CompletedAt
	} else if job.StartedAt != nil {
		resp.Timestamp = *job.StartedAt
	}
	return resp
}

// ListJobsHandler handles GET /api/jobs?status=&limit=&offset=.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	jobs, err := h.queueService.ListJobs(r.Context(), &interfaces.JobListOptions{
		Status:    models.JobStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Offset:    offset,
		OrderDesc: true,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	statuses := make([]statusResponse, 0, len(jobs))
	for _, job := range jobs {
		statuses = append(statuses, toStatusResponse(job))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   statuses,
		"limit":  limit,
		"offset": offset,
	})
}

// JobRoutesHandler dispatches /api/jobs/{id} and /api/jobs/{id}/status.
func (h *JobHandler) JobRoutesHandler(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}
	jobID := pathParts[2]

	switch {
	case r.Method == http.MethodGet:
		h.getStatus(w, r, jobID)
	case r.Method == http.MethodDelete && len(pathParts) == 3:
		h.cancel(w, r, jobID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *JobHandler) getStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.queueService.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(job))
}

func (h *JobHandler) cancel(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.queueService.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "job_id": jobID})
}

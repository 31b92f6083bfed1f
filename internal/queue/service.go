package queue

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// messageTypeGenerate routes estimate-generation work.
const messageTypeGenerate = "generate"

// Service is the submission facade the handlers talk to: enqueue, read,
// cancel. The HTTP path never blocks on model calls; it persists the job and
// returns the id immediately.
type Service struct {
	manager *Manager
	jobs    interfaces.JobStorage
	logger  arbor.ILogger
}

func NewService(manager *Manager, jobs interfaces.JobStorage, logger arbor.ILogger) *Service {
	return &Service{
		manager: manager,
		jobs:    jobs,
		logger:  logger,
	}
}

// Enqueue persists a queued job and places its message on the queue.
func (s *Service) Enqueue(ctx context.Context, req models.GenerationRequest) (*models.Job, error) {
	if req.Assessment.IsEmpty() {
		return nil, fmt.Errorf("assessment is required")
	}

	job := models.NewJob(common.NewJobID(), req)
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	msg := models.QueueMessage{
		JobID: job.ID,
		Type:  messageTypeGenerate,
	}
	if err := s.manager.Enqueue(ctx, msg); err != nil {
		// The job record exists but nothing will process it; seal it so the
		// caller is not left polling forever.
		if markErr := job.MarkFailed(fmt.Sprintf("failed to enqueue: %v", err)); markErr == nil {
			_ = s.jobs.SaveJob(ctx, job)
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info().Str("job_id", job.ID).Msg("Job enqueued")
	return job, nil
}

// RunSync executes the pipeline inline for the legacy synchronous mode. The
// job record is persisted and sealed like any queued job, but no queue
// message is created so the workers never see it.
func (s *Service) RunSync(ctx context.Context, req models.GenerationRequest, pipeline *Pipeline) (*models.Job, *models.GenerationResult, error) {
	if req.Assessment.IsEmpty() {
		return nil, nil, fmt.Errorf("assessment is required")
	}

	job := models.NewJob(common.NewJobID(), req)
	if err := job.MarkActive(); err != nil {
		return nil, nil, err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to persist job: %w", err)
	}

	result, err := pipeline.Run(ctx, job)
	if err != nil {
		if markErr := job.MarkFailed(err.Error()); markErr == nil {
			_ = s.jobs.SaveJob(ctx, job)
		}
		return job, nil, err
	}

	if markErr := job.MarkCompleted(result); markErr == nil {
		_ = s.jobs.SaveJob(ctx, job)
	}
	return job, result, nil
}

// GetJob returns the job record, or interfaces.ErrJobNotFound.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// ListJobs pages the job history.
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.jobs.ListJobs(ctx, opts)
}

// Cancel seals a non-terminal job as cancelled and removes its queue
// message. Cancelling mid-execution is best-effort: the worker finishes its
// current phase, notices the terminal state, and runs no further phases.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}

	if err := job.MarkCancelled(); err != nil {
		return err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to store cancellation: %w", err)
	}

	if _, err := s.manager.RemoveByJobID(ctx, jobID); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to remove queue message for cancelled job")
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	return nil
}

// Depth reports the number of pending queue messages.
func (s *Service) Depth(ctx context.Context) (int, error) {
	return s.manager.Depth(ctx)
}

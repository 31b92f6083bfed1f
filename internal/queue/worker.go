package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// WorkerConfig bounds the worker pool.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxReceive   int
	Concurrency  int
}

// retryBaseBackoff seeds the exponential release delay between attempts.
const (
	retryBaseBackoff = 5 * time.Second
	retryMaxBackoff  = 2 * time.Minute
)

// Worker pulls jobs from the queue and runs the pipeline, a small fixed
// number in parallel to bound outbound API load. Transient failures release
// the message with backoff; once attempts are exhausted the job fails with
// the last error captured verbatim.
type Worker struct {
	manager  *Manager
	jobs     interfaces.JobStorage
	pipeline *Pipeline
	config   WorkerConfig
	logger   arbor.ILogger
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(manager *Manager, jobs interfaces.JobStorage, pipeline *Pipeline, config WorkerConfig, logger arbor.ILogger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	if config.MaxReceive <= 0 {
		config.MaxReceive = 2
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 2
	}

	return &Worker{
		manager:  manager,
		jobs:     jobs,
		pipeline: pipeline,
		config:   config,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the poller goroutines, staggered so they do not hit the
// queue in lockstep.
func (w *Worker) Start(ctx context.Context) {
	stagger := w.config.PollInterval / time.Duration(w.config.Concurrency)
	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.pollLoop(ctx, time.Duration(i)*stagger)
	}

	w.logger.Info().
		Int("concurrency", w.config.Concurrency).
		Dur("poll_interval", w.config.PollInterval).
		Int("max_receive", w.config.MaxReceive).
		Msg("Queue workers started")
}

// Stop halts polling and waits for in-flight jobs to finish their current
// phase.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Worker) pollLoop(ctx context.Context, initialDelay time.Duration) {
	defer w.wg.Done()

	select {
	case <-time.After(initialDelay):
	case <-w.stop:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes ready messages until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := w.manager.Receive(ctx)
		if err != nil {
			if !errors.Is(err, models.ErrNoMessage) {
				w.logger.Error().Err(err).Msg("Queue receive failed")
			}
			return
		}

		w.process(ctx, delivery)
	}
}

func (w *Worker) process(ctx context.Context, delivery *Delivery) {
	jobID := delivery.Msg.JobID

	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		// Job record gone (purged or cancelled-and-deleted); drop the message.
		w.done(ctx, delivery)
		return
	}
	if job.Status.IsTerminal() {
		w.done(ctx, delivery)
		return
	}

	if err := job.MarkActive(); err != nil {
		w.done(ctx, delivery)
		return
	}
	if err := w.jobs.SaveJob(ctx, job); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job active")
		w.release(ctx, delivery)
		return
	}

	w.logger.Info().
		Str("job_id", jobID).
		Int("attempt", delivery.Attempt).
		Msg("Processing job")

	result, runErr := w.pipeline.Run(ctx, job)
	if runErr != nil {
		if errors.Is(runErr, errJobCancelled) {
			w.done(ctx, delivery)
			return
		}
		w.handleFailure(ctx, delivery, jobID, runErr)
		return
	}

	w.complete(ctx, delivery, jobID, result)
}

// complete seals the job with its result, unless a concurrent cancellation
// already sealed it.
func (w *Worker) complete(ctx context.Context, delivery *Delivery, jobID string, result *models.GenerationResult) {
	current, err := w.jobs.GetJob(ctx, jobID)
	if err != nil || current.Status.IsTerminal() {
		w.done(ctx, delivery)
		return
	}

	if err := current.MarkCompleted(result); err == nil {
		if err := w.jobs.SaveJob(ctx, current); err != nil {
			w.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to store job result")
			w.release(ctx, delivery)
			return
		}
	}

	w.logger.Info().
		Str("job_id", jobID).
		Bool("success", result.Success).
		Str("phase", result.Phase).
		Msg("Job completed")

	w.done(ctx, delivery)
}

// nonRetryable reports deterministic failures that cannot heal between
// attempts, such as a missing provider credential.
func nonRetryable(err error) bool {
	return errors.Is(err, interfaces.ErrNotConfigured)
}

// handleFailure releases for retry or seals the job as failed; non-retryable
// errors and exhausted attempts seal immediately.
func (w *Worker) handleFailure(ctx context.Context, delivery *Delivery, jobID string, runErr error) {
	if delivery.Attempt < w.config.MaxReceive && !nonRetryable(runErr) {
		backoff := retryBackoff(delivery.Attempt)
		w.logger.Warn().
			Err(runErr).
			Str("job_id", jobID).
			Int("attempt", delivery.Attempt).
			Dur("backoff", backoff).
			Msg("Job attempt failed, releasing for retry")

		if err := w.manager.Release(ctx, delivery, backoff); err != nil {
			w.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to release message")
		}
		return
	}

	w.logger.Error().
		Err(runErr).
		Str("job_id", jobID).
		Int("attempts", delivery.Attempt).
		Msg("Job failed after final attempt")

	current, err := w.jobs.GetJob(ctx, jobID)
	if err == nil && !current.Status.IsTerminal() {
		if err := current.MarkFailed(runErr.Error()); err == nil {
			if err := w.jobs.SaveJob(ctx, current); err != nil {
				w.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to store job failure")
			}
		}
	}

	w.done(ctx, delivery)
}

func (w *Worker) done(ctx context.Context, delivery *Delivery) {
	if err := w.manager.Done(ctx, delivery); err != nil {
		w.logger.Error().Err(err).Str("message_id", delivery.ID).Msg("Failed to remove queue message")
	}
}

func (w *Worker) release(ctx context.Context, delivery *Delivery) {
	if err := w.manager.Release(ctx, delivery, retryBaseBackoff); err != nil {
		w.logger.Error().Err(err).Str("message_id", delivery.ID).Msg("Failed to release queue message")
	}
}

// retryBackoff doubles per attempt from the base, capped.
func retryBackoff(attempt int) time.Duration {
	backoff := retryBaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= retryMaxBackoff {
			return retryMaxBackoff
		}
	}
	return backoff
}

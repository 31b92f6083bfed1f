package queue

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// Recorder consumes progress updates from the workers and persists them onto
// the job record. Keeping the write on one goroutine avoids racing the
// worker's completion write: updates for jobs that have already reached a
// terminal state are discarded.
type Recorder struct {
	jobs    interfaces.JobStorage
	updates <-chan models.ProgressUpdate
	logger  arbor.ILogger
	done    chan struct{}
}

func NewRecorder(jobs interfaces.JobStorage, updates <-chan models.ProgressUpdate, logger arbor.ILogger) *Recorder {
	return &Recorder{
		jobs:    jobs,
		updates: updates,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start drains updates until the channel closes.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for update := range r.updates {
			r.record(ctx, update)
		}
	}()
}

// Wait blocks until the recorder has drained after the channel closed.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) record(ctx context.Context, update models.ProgressUpdate) {
	job, err := r.jobs.GetJob(ctx, update.JobID)
	if err != nil {
		return
	}
	if job.Status.IsTerminal() {
		return
	}

	job.Phase = update.Phase
	job.Progress = update.Progress
	if err := r.jobs.SaveJob(ctx, job); err != nil {
		r.logger.Warn().Err(err).Str("job_id", update.JobID).Msg("Failed to record progress")
	}
}

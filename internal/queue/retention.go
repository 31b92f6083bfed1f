package queue

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// Retention evicts old terminal jobs on a schedule. Failures are retained in
// larger numbers than successes for post-hoc debugging; eviction is
// oldest-first within each status.
type Retention struct {
	jobs   interfaces.JobStorage
	config common.RetentionConfig
	cron   *cron.Cron
	logger arbor.ILogger
}

func NewRetention(jobs interfaces.JobStorage, config common.RetentionConfig, logger arbor.ILogger) *Retention {
	return &Retention{
		jobs:   jobs,
		config: config,
		logger: logger,
	}
}

// Start schedules the purge.
func (r *Retention) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.config.PurgeSchedule, func() {
		if _, err := r.Purge(context.Background()); err != nil {
			r.logger.Warn().Err(err).Msg("Job history purge failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", r.config.PurgeSchedule, err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule; a running purge finishes.
func (r *Retention) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Purge evicts terminal jobs beyond the retention caps, oldest first.
// Cancelled jobs share the completed cap. Returns the number evicted.
func (r *Retention) Purge(ctx context.Context) (int, error) {
	purged := 0
	caps := []struct {
		status models.JobStatus
		max    int
	}{
		{models.JobStatusCompleted, r.config.MaxCompleted},
		{models.JobStatusCancelled, r.config.MaxCompleted},
		{models.JobStatusFailed, r.config.MaxFailed},
	}

	for _, c := range caps {
		n, err := r.purgeStatus(ctx, c.status, c.max)
		purged += n
		if err != nil {
			return purged, err
		}
	}

	if purged > 0 {
		r.logger.Info().Int("purged", purged).Msg("Evicted old jobs from history")
	}
	return purged, nil
}

func (r *Retention) purgeStatus(ctx context.Context, status models.JobStatus, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	// Newest-first listing: everything past the cap is the oldest overflow.
	overflow, err := r.jobs.ListJobs(ctx, &interfaces.JobListOptions{
		Status:    status,
		Offset:    max,
		Limit:     0,
		OrderDesc: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list %s jobs: %w", status, err)
	}

	purged := 0
	for _, job := range overflow {
		if err := r.jobs.DeleteJob(ctx, job.ID); err != nil {
			return purged, fmt.Errorf("failed to delete job %s: %w", job.ID, err)
		}
		purged++
	}
	return purged, nil
}

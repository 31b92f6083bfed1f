package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/models"
)

func TestRecorderPersistsProgress(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobStore()

	job := models.NewJob("job-1", models.GenerationRequest{})
	require.NoError(t, job.MarkActive())
	require.NoError(t, jobs.SaveJob(ctx, job))

	updates := make(chan models.ProgressUpdate, 4)
	recorder := NewRecorder(jobs, updates, arbor.NewLogger())
	recorder.Start(ctx)

	updates <- models.ProgressUpdate{JobID: "job-1", Phase: models.PhaseDraft, Progress: 40}
	close(updates)
	recorder.Wait()

	stored, err := jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDraft, stored.Phase)
	assert.Equal(t, 40, stored.Progress)
	assert.Equal(t, models.JobStatusActive, stored.Status, "progress never changes the state")
}

func TestRecorderDiscardsUpdatesForTerminalJobs(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobStore()

	job := models.NewJob("job-1", models.GenerationRequest{})
	require.NoError(t, job.MarkCompleted(&models.GenerationResult{Success: true, Phase: models.PhaseDone}))
	require.NoError(t, jobs.SaveJob(ctx, job))

	updates := make(chan models.ProgressUpdate, 4)
	recorder := NewRecorder(jobs, updates, arbor.NewLogger())
	recorder.Start(ctx)

	// A stale update from the worker must not roll a sealed job backwards.
	updates <- models.ProgressUpdate{JobID: "job-1", Phase: models.PhaseMatch, Progress: 60}
	updates <- models.ProgressUpdate{JobID: "no-such-job", Phase: models.PhaseScope, Progress: 5}
	close(updates)
	recorder.Wait()

	stored, err := jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDone, stored.Phase)
	assert.Equal(t, 100, stored.Progress)
}

func TestPipelinePublishNeverBlocks(t *testing.T) {
	jobs := newMemJobStore()
	// Unbuffered channel with no consumer: publish must drop, not hang.
	progress := make(chan models.ProgressUpdate)
	pipeline := newTestPipeline(&scriptedChat{responses: []string{scopeClarify}}, jobs, progress)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pipeline.publish("job-1", models.PhaseScope, 5)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full progress channel")
	}
}

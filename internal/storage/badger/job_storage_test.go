package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

func TestJobStorageSaveGet(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	job := models.NewJob("job-1", models.GenerationRequest{
		Assessment: models.Assessment{OriginalText: "replace the gutters"},
	})
	require.NoError(t, storage.SaveJob(ctx, job))

	stored, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, stored.Status)
	assert.Equal(t, "replace the gutters", stored.Payload.Assessment.OriginalText)
}

func TestJobStorageRoundTripsResult(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	job := models.NewJob("job-1", models.GenerationRequest{})
	score := 0.91
	require.NoError(t, job.MarkActive())
	require.NoError(t, job.MarkCompleted(&models.GenerationResult{
		Success: true,
		Phase:   models.PhaseDone,
		Items: []models.AnnotatedItem{{
			DraftLineItem: models.DraftLineItem{Description: "Remove shingles", Quantity: 24, Unit: "square", UnitCost: 85, Total: 2040},
			CatalogStatus: models.MatchKindMatch,
			Match: &models.CatalogMatchResult{
				Kind:      models.MatchKindMatch,
				ProductID: "prod-1",
				Score:     &score,
			},
		}},
	}))
	require.NoError(t, storage.SaveJob(ctx, job))

	stored, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Result)
	require.Len(t, stored.Result.Items, 1)
	assert.Equal(t, models.MatchKindMatch, stored.Result.Items[0].CatalogStatus)
	require.NotNil(t, stored.Result.Items[0].Match.Score)
	assert.Equal(t, 0.91, *stored.Result.Items[0].Match.Score)
}

func TestJobStorageRequiresID(t *testing.T) {
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())
	assert.Error(t, storage.SaveJob(context.Background(), &models.Job{}))
}

func TestJobStorageGetMissing(t *testing.T) {
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())
	_, err := storage.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func seedJobs(t *testing.T, storage interfaces.JobStorage, count int, status models.JobStatus) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < count; i++ {
		job := &models.Job{
			ID:        fmt.Sprintf("%s-%03d", status, i),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, storage.SaveJob(context.Background(), job))
	}
}

func TestJobStorageListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	seedJobs(t, storage, 3, models.JobStatusCompleted)
	seedJobs(t, storage, 2, models.JobStatusFailed)

	completed, err := storage.ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 3)

	all, err := storage.ListJobs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestJobStorageListNewestFirst(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	seedJobs(t, storage, 5, models.JobStatusCompleted)

	jobs, err := storage.ListJobs(ctx, &interfaces.JobListOptions{OrderDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "completed-004", jobs[0].ID)
	assert.Equal(t, "completed-003", jobs[1].ID)
}

func TestJobStorageListPagination(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	seedJobs(t, storage, 5, models.JobStatusCompleted)

	page, err := storage.ListJobs(ctx, &interfaces.JobListOptions{OrderDesc: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "completed-002", page[0].ID)
}

func TestJobStorageCountByStatus(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	seedJobs(t, storage, 4, models.JobStatusQueued)
	seedJobs(t, storage, 1, models.JobStatusFailed)

	count, err := storage.CountByStatus(ctx, models.JobStatusQueued)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestJobStorageDelete(t *testing.T) {
	ctx := context.Background()
	storage := NewJobStorage(openTestStore(t), arbor.NewLogger())

	seedJobs(t, storage, 1, models.JobStatusCompleted)
	require.NoError(t, storage.DeleteJob(ctx, "completed-000"))

	_, err := storage.GetJob(ctx, "completed-000")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	assert.ErrorIs(t, storage.DeleteJob(ctx, "completed-000"), interfaces.ErrJobNotFound)
}

package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/models"
)

func seedTerminalJobs(t *testing.T, jobs *memJobStore, status models.JobStatus, count int, base time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		job := &models.Job{
			ID:        fmt.Sprintf("%s-%03d", status, i),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, jobs.SaveJob(context.Background(), job))
	}
}

func TestPurgeEvictsOldestBeyondCap(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobStore()
	base := time.Now().Add(-time.Hour)

	seedTerminalJobs(t, jobs, models.JobStatusCompleted, 12, base)

	retention := NewRetention(jobs, common.RetentionConfig{
		MaxCompleted:  10,
		MaxFailed:     200,
		PurgeSchedule: "@every 10m",
	}, arbor.NewLogger())

	purged, err := retention.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	// The two oldest are gone; the newest survive.
	_, err = jobs.GetJob(ctx, "completed-000")
	assert.Error(t, err)
	_, err = jobs.GetJob(ctx, "completed-001")
	assert.Error(t, err)
	_, err = jobs.GetJob(ctx, "completed-011")
	assert.NoError(t, err)
}

func TestPurgeCapsPerStatus(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobStore()
	base := time.Now().Add(-time.Hour)

	seedTerminalJobs(t, jobs, models.JobStatusCompleted, 5, base)
	seedTerminalJobs(t, jobs, models.JobStatusCancelled, 5, base)
	seedTerminalJobs(t, jobs, models.JobStatusFailed, 5, base)

	// Failed jobs have a larger cap than completed ones.
	retention := NewRetention(jobs, common.RetentionConfig{
		MaxCompleted: 3,
		MaxFailed:    5,
	}, arbor.NewLogger())

	purged, err := retention.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, purged, "two completed and two cancelled over cap, no failed")

	completed, _ := jobs.CountByStatus(ctx, models.JobStatusCompleted)
	cancelled, _ := jobs.CountByStatus(ctx, models.JobStatusCancelled)
	failed, _ := jobs.CountByStatus(ctx, models.JobStatusFailed)
	assert.Equal(t, 3, completed)
	assert.Equal(t, 3, cancelled)
	assert.Equal(t, 5, failed)
}

func TestPurgeUnderCapIsNoOp(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobStore()
	seedTerminalJobs(t, jobs, models.JobStatusCompleted, 3, time.Now())

	retention := NewRetention(jobs, common.RetentionConfig{MaxCompleted: 50, MaxFailed: 200}, arbor.NewLogger())
	purged, err := retention.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
}

func TestRetentionStartRejectsBadSchedule(t *testing.T) {
	retention := NewRetention(newMemJobStore(), common.RetentionConfig{
		MaxCompleted:  50,
		MaxFailed:     200,
		PurgeSchedule: "not a schedule",
	}, arbor.NewLogger())

	assert.Error(t, retention.Start())
}

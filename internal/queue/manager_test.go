package queue

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/models"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestManager(t *testing.T, visibility time.Duration) *Manager {
	t.Helper()
	manager, err := NewManager(openTestDB(t), "test_queue", visibility, arbor.NewLogger())
	require.NoError(t, err)
	return manager
}

func TestManagerEnqueueReceiveDone(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, time.Minute)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1", Type: "generate"}))

	depth, err := manager.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	delivery, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", delivery.Msg.JobID)
	assert.Equal(t, 1, delivery.Attempt)

	// Claimed messages still count toward depth until Done.
	depth, err = manager.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	require.NoError(t, manager.Done(ctx, delivery))

	depth, err = manager.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	_, err = manager.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage)
}

func TestManagerEmptyQueue(t *testing.T) {
	manager := newTestManager(t, time.Minute)
	_, err := manager.Receive(context.Background())
	assert.ErrorIs(t, err, models.ErrNoMessage)
}

func TestManagerClaimHidesMessage(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, time.Minute)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1"}))

	_, err := manager.Receive(ctx)
	require.NoError(t, err)

	// The claim acts as the processing lock.
	_, err = manager.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage)
}

func TestManagerVisibilityTimeoutRedelivers(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, 50*time.Millisecond)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1"}))

	first, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempt)

	time.Sleep(80 * time.Millisecond)

	// A crashed worker's claim expires and the message comes back.
	second, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", second.Msg.JobID)
	assert.Equal(t, 2, second.Attempt)
}

func TestManagerRelease(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, time.Minute)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1"}))

	delivery, err := manager.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.Release(ctx, delivery, 0))

	redelivered, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, redelivered.Attempt)
}

func TestManagerFIFOByVisibility(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, time.Minute)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1"}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-2"}))

	first, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", first.Msg.JobID)

	second, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", second.Msg.JobID)
}

func TestManagerRemoveByJobID(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, time.Minute)

	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-1"}))
	require.NoError(t, manager.Enqueue(ctx, models.QueueMessage{JobID: "job-2"}))

	removed, err := manager.RemoveByJobID(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = manager.RemoveByJobID(ctx, "job-unknown")
	require.NoError(t, err)
	assert.False(t, removed)

	depth, err := manager.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	delivery, err := manager.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", delivery.Msg.JobID)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, "q", time.Minute, arbor.NewLogger())
	assert.Error(t, err)

	_, err = NewManager(openTestDB(t), "", time.Minute, arbor.NewLogger())
	assert.Error(t, err)
}

package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerEnqueue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	policy := Policy{MaxAttempts: 3, BackoffBase: 5 * time.Second}
	jobID, err := producer.Enqueue(ctx, LaneImport, ImportPayload{ImportID: "imp-1", FilePath: "a.csv"}, policy)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// The dispatch carries only the job id.
	msg := receiveDispatch(t, broker.ch)
	assert.Equal(t, jobID, msg.JobID)

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, LaneImport, job.Lane)
	assert.Equal(t, StateWaiting, job.State)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, int64(5000), job.BackoffBaseMS)
	assert.JSONEq(t, `{"import_id":"imp-1","file_path":"a.csv","brand_id":""}`, string(job.Payload))
}

func TestProducerEnqueueRejectsUnknownLane(t *testing.T) {
	producer := NewProducer(newMemStore(), newChanBroker(), discardLogger())

	_, err := producer.Enqueue(context.Background(), Lane("cleanup"), nil, Policy{MaxAttempts: 1})
	assert.Error(t, err)
}

func TestProducerStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	jobID, err := producer.Enqueue(ctx, LaneExport, ExportPayload{Format: "csv"}, Policy{MaxAttempts: 2, BackoffBase: time.Second})
	require.NoError(t, err)

	status, err := producer.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, status.ID)
	assert.Equal(t, LaneExport, status.Lane)
	assert.Equal(t, StateWaiting, status.State)
	assert.Equal(t, 0, status.Attempt)
	assert.Equal(t, 2, status.MaxAttempts)

	_, err = producer.Status(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestProducerCancel(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	t.Run("waiting job cancels", func(t *testing.T) {
		jobID, err := producer.Enqueue(ctx, LaneImport, nil, Policy{MaxAttempts: 3, BackoffBase: time.Second})
		require.NoError(t, err)

		require.NoError(t, producer.Cancel(ctx, jobID))

		status, err := producer.Status(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, StateCanceled, status.State)

		// A second cancel finds the job already terminal.
		assert.ErrorIs(t, producer.Cancel(ctx, jobID), ErrJobNotCancelable)
	})

	t.Run("claimed job refuses to cancel", func(t *testing.T) {
		jobID, err := producer.Enqueue(ctx, LaneImport, nil, Policy{MaxAttempts: 3, BackoffBase: time.Second})
		require.NoError(t, err)

		_, err = store.ClaimJob(ctx, jobID, "w1")
		require.NoError(t, err)

		assert.ErrorIs(t, producer.Cancel(ctx, jobID), ErrJobNotCancelable)
	})

	t.Run("unknown job", func(t *testing.T) {
		assert.ErrorIs(t, producer.Cancel(ctx, "missing"), ErrJobNotFound)
	})
}

func TestClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	producer := NewProducer(store, newChanBroker(), discardLogger())

	jobID, err := producer.Enqueue(ctx, LaneImport, nil, Policy{MaxAttempts: 3, BackoffBase: time.Second})
	require.NoError(t, err)

	first, err := store.ClaimJob(ctx, jobID, "w1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, "w1", first.WorkerID)

	_, err = store.ClaimJob(ctx, jobID, "w2")
	assert.ErrorIs(t, err, ErrJobAlreadyClaimed)
}

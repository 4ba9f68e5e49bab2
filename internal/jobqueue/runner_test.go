package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same transition semantics as the
// Postgres implementation.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*Job)}
}

func (s *memStore) CreateJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memStore) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memStore) ClaimJob(_ context.Context, id, workerID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.State != StateWaiting {
		return nil, ErrJobAlreadyClaimed
	}

	now := time.Now().UTC()
	job.State = StateActive
	job.Attempt++
	job.WorkerID = workerID
	job.StartedAt = &now
	job.UpdatedAt = now

	copied := *job
	return &copied, nil
}

func (s *memStore) CompleteJob(_ context.Context, id string, result json.RawMessage) error {
	return s.finish(id, StateCompleted, result, "")
}

func (s *memStore) FailJob(_ context.Context, id, reason string) error {
	return s.finish(id, StateFailed, nil, reason)
}

func (s *memStore) finish(id string, state State, result json.RawMessage, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.State != StateActive {
		return ErrJobNotFound
	}

	now := time.Now().UTC()
	job.State = state
	job.Result = result
	job.FailureReason = reason
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

func (s *memStore) RescheduleJob(_ context.Context, id string, nextRunAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.State != StateActive {
		return ErrJobNotFound
	}

	job.State = StateWaiting
	job.NextRunAt = nextRunAt
	job.FailureReason = reason
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) CancelJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.State != StateWaiting {
		return ErrJobNotCancelable
	}

	job.State = StateCanceled
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) DueJobs(_ context.Context, lane Lane, now time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, job := range s.jobs {
		if job.Lane == lane && job.State == StateWaiting && !job.NextRunAt.After(now) {
			due = append(due, *job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(due[j].NextRunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memStore) ReclaimStale(_ context.Context, lane Lane, cutoff time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*Job
	for _, job := range s.jobs {
		if job.Lane == lane && job.State == StateActive && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, job)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}

	now := time.Now().UTC()
	reclaimed := make([]Job, 0, len(stale))
	for _, job := range stale {
		job.State = StateWaiting
		job.WorkerID = ""
		job.NextRunAt = now
		job.UpdatedAt = now
		reclaimed = append(reclaimed, *job)
	}
	return reclaimed, nil
}

// chanBroker loops dispatches back over a channel.
type chanBroker struct {
	ch chan Message
}

func newChanBroker() *chanBroker {
	return &chanBroker{ch: make(chan Message, 16)}
}

func (b *chanBroker) Publish(_ context.Context, _ Lane, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	b.ch <- msg
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receiveDispatch(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		return Message{}
	}
}

func TestRunnerRetriesUntilSuccess(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	policy := Policy{MaxAttempts: 3, BackoffBase: time.Millisecond}
	jobID, err := producer.Enqueue(ctx, LaneImport, map[string]string{"file": "a.csv"}, policy)
	require.NoError(t, err)

	// Fail the first two attempts, succeed on the third.
	handler := func(_ context.Context, job *Job) (json.RawMessage, error) {
		if job.Attempt < 3 {
			return nil, fmt.Errorf("transient failure on attempt %d", job.Attempt)
		}
		return json.RawMessage(`{"ok":true}`), nil
	}

	runner := NewRunner(LaneImport, store, broker, handler, "w1", discardLogger())

	for i := 0; i < 3; i++ {
		msg := receiveDispatch(t, broker.ch)
		require.Equal(t, jobID, msg.JobID)
		require.NoError(t, runner.Process(ctx, msg.JobID))
	}
	runner.Wait()

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, job.State)
	assert.Equal(t, 3, job.Attempt)
	assert.JSONEq(t, `{"ok":true}`, string(job.Result))
}

func TestRunnerReschedulesWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	policy := Policy{MaxAttempts: 3, BackoffBase: time.Minute}
	jobID, err := producer.Enqueue(ctx, LaneImport, nil, policy)
	require.NoError(t, err)
	receiveDispatch(t, broker.ch)

	handler := func(_ context.Context, _ *Job) (json.RawMessage, error) {
		return nil, errors.New("boom")
	}
	runner := NewRunner(LaneImport, store, broker, handler, "w1", discardLogger())

	before := time.Now().UTC()
	require.NoError(t, runner.Process(ctx, jobID))

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, job.State)
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, "boom", job.FailureReason)

	// First retry delay is the base backoff.
	delay := job.NextRunAt.Sub(before)
	assert.Greater(t, delay, 50*time.Second)
	assert.LessOrEqual(t, delay, 61*time.Second)
}

func TestRunnerFailsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()
	producer := NewProducer(store, broker, discardLogger())

	policy := Policy{MaxAttempts: 2, BackoffBase: time.Millisecond}
	jobID, err := producer.Enqueue(ctx, LaneExport, nil, policy)
	require.NoError(t, err)

	handler := func(_ context.Context, _ *Job) (json.RawMessage, error) {
		return nil, errors.New("boom")
	}
	runner := NewRunner(LaneExport, store, broker, handler, "w1", discardLogger())

	// First attempt fails and schedules a retry.
	msg := receiveDispatch(t, broker.ch)
	require.NoError(t, runner.Process(ctx, msg.JobID))

	// Second attempt arrives after the backoff and exhausts the budget.
	msg = receiveDispatch(t, broker.ch)
	err = runner.Process(ctx, msg.JobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxAttemptsExceeded)

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, 2, job.Attempt)
	assert.Contains(t, job.FailureReason, "boom")
	runner.Wait()
}

func TestRunnerSkipsUnclaimableJob(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()

	require.NoError(t, store.CreateJob(ctx, &Job{
		ID:          "job-1",
		Lane:        LaneImport,
		State:       StateActive,
		MaxAttempts: 3,
	}))

	handler := func(_ context.Context, _ *Job) (json.RawMessage, error) {
		t.Fatal("handler must not run for an unclaimable job")
		return nil, nil
	}
	runner := NewRunner(LaneImport, store, broker, handler, "w1", discardLogger())

	// Already active elsewhere: dispatch is dropped.
	assert.NoError(t, runner.Process(ctx, "job-1"))

	// Unknown job: dispatch is dropped too.
	assert.NoError(t, runner.Process(ctx, "missing"))
}

func TestRunnerRequeueDue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	require.NoError(t, store.CreateJob(ctx, &Job{ID: "due-1", Lane: LaneImport, State: StateWaiting, NextRunAt: past}))
	require.NoError(t, store.CreateJob(ctx, &Job{ID: "later", Lane: LaneImport, State: StateWaiting, NextRunAt: future}))
	require.NoError(t, store.CreateJob(ctx, &Job{ID: "done", Lane: LaneImport, State: StateCompleted, NextRunAt: past}))
	require.NoError(t, store.CreateJob(ctx, &Job{ID: "other-lane", Lane: LaneExport, State: StateWaiting, NextRunAt: past}))

	runner := NewRunner(LaneImport, store, broker, nil, "w1", discardLogger())
	require.NoError(t, runner.RequeueDue(ctx, 10))

	msg := receiveDispatch(t, broker.ch)
	assert.Equal(t, "due-1", msg.JobID)

	select {
	case msg := <-broker.ch:
		t.Fatalf("unexpected dispatch for %s", msg.JobID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunnerReclaimsStaleActive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	broker := newChanBroker()

	// Orphaned by a worker that died (or lost its completion write) long ago.
	require.NoError(t, store.CreateJob(ctx, &Job{
		ID:          "stale-1",
		Lane:        LaneImport,
		State:       StateActive,
		Attempt:     1,
		MaxAttempts: 3,
		WorkerID:    "w-dead",
		UpdatedAt:   time.Now().UTC().Add(-time.Hour),
	}))
	// Legitimately in flight: recently touched.
	require.NoError(t, store.CreateJob(ctx, &Job{
		ID:        "fresh",
		Lane:      LaneImport,
		State:     StateActive,
		WorkerID:  "w2",
		UpdatedAt: time.Now().UTC(),
	}))

	runner := NewRunner(LaneImport, store, broker, nil, "w1", discardLogger())
	require.NoError(t, runner.ReclaimStale(ctx, 15*time.Minute, 10))

	msg := receiveDispatch(t, broker.ch)
	assert.Equal(t, "stale-1", msg.JobID)

	job, err := store.GetJob(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, job.State)
	assert.Empty(t, job.WorkerID)

	fresh, err := store.GetJob(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, StateActive, fresh.State)

	select {
	case msg := <-broker.ch:
		t.Fatalf("unexpected dispatch for %s", msg.JobID)
	case <-time.After(50 * time.Millisecond):
	}
}

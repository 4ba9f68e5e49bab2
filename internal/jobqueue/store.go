package jobqueue

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the durable backing of the queue. Implementations must make
// ClaimJob atomic with respect to concurrent claimants: exactly one caller
// wins the waiting -> active transition, all others get
// ErrJobAlreadyClaimed.
type Store interface {
	// CreateJob persists a new waiting job.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns a job by id, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*Job, error)

	// ClaimJob transitions a waiting job to active, increments its attempt
	// counter, and records the claiming worker. Returns the claimed job or
	// ErrJobAlreadyClaimed if the job is not waiting.
	ClaimJob(ctx context.Context, id, workerID string) (*Job, error)

	// CompleteJob transitions an active job to completed and stores the
	// handler result.
	CompleteJob(ctx context.Context, id string, result json.RawMessage) error

	// FailJob transitions an active job to permanently failed and stores a
	// human-readable failure reason.
	FailJob(ctx context.Context, id, reason string) error

	// RescheduleJob returns an active job to waiting with a future
	// next_run_at, recording the reason for the failed attempt.
	RescheduleJob(ctx context.Context, id string, nextRunAt time.Time, reason string) error

	// CancelJob transitions a waiting job to canceled, best-effort. Jobs
	// that are already claimed or finished return ErrJobNotCancelable.
	CancelJob(ctx context.Context, id string) error

	// DueJobs returns waiting jobs on the lane whose next_run_at has
	// passed, oldest first. Used by the crash-recovery sweep.
	DueJobs(ctx context.Context, lane Lane, now time.Time, limit int) ([]Job, error)

	// ReclaimStale returns active jobs on the lane untouched since cutoff
	// to waiting, clearing the claim, and reports the reclaimed jobs. It
	// recovers jobs orphaned when a worker died mid-attempt or the
	// completion write was lost.
	ReclaimStale(ctx context.Context, lane Lane, cutoff time.Time, limit int) ([]Job, error)
}

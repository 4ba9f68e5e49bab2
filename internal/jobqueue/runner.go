package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handler executes one job attempt and returns the job result on success.
// A returned error consumes the attempt.
type Handler func(ctx context.Context, job *Job) (json.RawMessage, error)

// Runner drives the consumer-side state machine for one lane: claim the
// dispatched job, execute the handler, and settle the attempt. Retry and
// backoff live here rather than in the broker, so the behavior is identical
// regardless of the transport: a failed attempt with budget remaining
// returns the job to waiting and republishes its dispatch once the backoff
// delay has elapsed.
type Runner struct {
	lane     Lane
	store    Store
	broker   Broker
	handler  Handler
	workerID string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewRunner(lane Lane, store Store, broker Broker, handler Handler, workerID string, logger *slog.Logger) *Runner {
	return &Runner{
		lane:     lane,
		store:    store,
		broker:   broker,
		handler:  handler,
		workerID: workerID,
		logger:   logger,
	}
}

func (r *Runner) Lane() Lane {
	return r.lane
}

// Process runs one dispatch. The return value tells the caller how to settle
// the broker delivery:
//   - nil: done with this dispatch (completed, retry scheduled, or the job
//     was claimed elsewhere / canceled) - ack.
//   - RetryableError: the store was unreachable before any state could be
//     recorded - nack with requeue.
//   - other errors: terminal failure already recorded - ack.
func (r *Runner) Process(ctx context.Context, jobID string) error {
	job, err := r.store.ClaimJob(ctx, jobID, r.workerID)
	if err != nil {
		if errors.Is(err, ErrJobAlreadyClaimed) || errors.Is(err, ErrJobNotFound) {
			r.logger.Warn("Skipping dispatch for unclaimable job",
				slog.String("job_id", jobID),
				slog.String("lane", string(r.lane)),
			)
			return nil
		}
		return NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	result, execErr := r.handler(ctx, job)
	if execErr == nil {
		// A lost completion write leaves the row active; the stale-active
		// reclaim returns it to waiting and the attempt runs again.
		if err := r.store.CompleteJob(ctx, job.ID, result); err != nil {
			r.logger.Error("Failed to record job completion",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}

		r.logger.Info("Job completed",
			slog.String("job_id", job.ID),
			slog.String("lane", string(r.lane)),
			slog.Int("attempt", job.Attempt),
		)
		return nil
	}

	if job.Attempt < job.MaxAttempts {
		delay := job.Policy().Delay(job.Attempt)
		nextRunAt := time.Now().UTC().Add(delay)

		if err := r.store.RescheduleJob(ctx, job.ID, nextRunAt, execErr.Error()); err != nil {
			r.logger.Error("Failed to reschedule job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			return NewRetryableError(err)
		}

		r.logger.Warn("Job attempt failed, retry scheduled",
			slog.String("job_id", job.ID),
			slog.String("lane", string(r.lane)),
			slog.Int("attempt", job.Attempt),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Duration("backoff", delay),
			slog.String("error", execErr.Error()),
		)

		r.republishAfter(ctx, job.ID, delay)
		return nil
	}

	if err := r.store.FailJob(ctx, job.ID, execErr.Error()); err != nil {
		r.logger.Error("Failed to record permanent job failure",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}

	r.logger.Error("Job failed permanently",
		slog.String("job_id", job.ID),
		slog.String("lane", string(r.lane)),
		slog.Int("attempt", job.Attempt),
		slog.String("error", execErr.Error()),
	)

	return fmt.Errorf("%w: %v", ErrMaxAttemptsExceeded, execErr)
}

// republishAfter re-dispatches the job once its backoff delay has elapsed.
// A republish lost to shutdown is recovered by RequeueDue.
func (r *Runner) republishAfter(ctx context.Context, jobID string, delay time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := r.publishDispatch(context.WithoutCancel(ctx), jobID); err != nil {
			r.logger.Warn("Failed to republish retry dispatch, sweep will recover it",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (r *Runner) publishDispatch(ctx context.Context, jobID string) error {
	body, err := json.Marshal(Message{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch message: %w", err)
	}
	return r.broker.Publish(ctx, r.lane, body)
}

// RequeueDue republishes dispatches for waiting jobs whose next_run_at has
// passed. It covers dispatches lost to crashes or failed publishes; a
// duplicate dispatch is harmless because the claim is atomic.
func (r *Runner) RequeueDue(ctx context.Context, limit int) error {
	jobs, err := r.store.DueJobs(ctx, r.lane, time.Now().UTC(), limit)
	if err != nil {
		return err
	}

	for i := range jobs {
		if err := r.publishDispatch(ctx, jobs[i].ID); err != nil {
			return err
		}
	}

	if len(jobs) > 0 {
		r.logger.Info("Requeued due jobs",
			slog.String("lane", string(r.lane)),
			slog.Int("count", len(jobs)),
		)
	}

	return nil
}

// ReclaimStale returns active jobs untouched for longer than olderThan to
// waiting and republishes their dispatches. It recovers jobs orphaned by a
// dead worker or a completion write that never reached the store. The
// threshold must comfortably exceed the longest legitimate attempt.
func (r *Runner) ReclaimStale(ctx context.Context, olderThan time.Duration, limit int) error {
	cutoff := time.Now().UTC().Add(-olderThan)

	jobs, err := r.store.ReclaimStale(ctx, r.lane, cutoff, limit)
	if err != nil {
		return err
	}

	for i := range jobs {
		if err := r.publishDispatch(ctx, jobs[i].ID); err != nil {
			return err
		}
	}

	if len(jobs) > 0 {
		r.logger.Warn("Reclaimed stale active jobs",
			slog.String("lane", string(r.lane)),
			slog.Int("count", len(jobs)),
		)
	}

	return nil
}

// Wait blocks until all pending republish timers have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

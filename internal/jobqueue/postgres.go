package jobqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const jobColumns = `
	id, lane, payload, state, attempt, max_attempts, backoff_base_ms,
	next_run_at, worker_id, result, failure_reason,
	created_at, updated_at, started_at, completed_at
`

// PostgresStore implements Store over a jobs table. Claims rely on a
// conditional UPDATE so only one claimant can win the waiting -> active
// transition.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO jobs (
			id, lane, payload, state, attempt, max_attempts, backoff_base_ms,
			next_run_at, worker_id, failure_reason, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, 0, $5, $6,
			$7, '', '', $8, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Lane,
		[]byte(job.Payload),
		job.State,
		job.MaxAttempts,
		job.BackoffBaseMS,
		job.NextRunAt,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var job Job
	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (s *PostgresStore) ClaimJob(ctx context.Context, id, workerID string) (*Job, error) {
	query := `
		UPDATE jobs
		SET state = $1,
		    attempt = attempt + 1,
		    worker_id = $2,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND state = $4
		RETURNING ` + jobColumns

	var job Job
	err := s.db.GetContext(ctx, &job, query, StateActive, workerID, id, StateWaiting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not waiting",
				slog.String("job_id", id),
				slog.String("worker_id", workerID),
			)
			return nil, ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", id),
		slog.String("lane", string(job.Lane)),
		slog.String("worker_id", workerID),
		slog.Int("attempt", job.Attempt),
	)

	return &job, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id string, result json.RawMessage) error {
	query := `
		UPDATE jobs
		SET state = $1,
		    result = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND state = $4
	`

	if err := s.finish(ctx, query, StateCompleted, []byte(result), id, StateActive); err != nil {
		return err
	}

	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id, reason string) error {
	query := `
		UPDATE jobs
		SET state = $1,
		    failure_reason = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND state = $4
	`

	return s.finish(ctx, query, StateFailed, reason, id, StateActive)
}

func (s *PostgresStore) finish(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (s *PostgresStore) RescheduleJob(ctx context.Context, id string, nextRunAt time.Time, reason string) error {
	query := `
		UPDATE jobs
		SET state = $1,
		    next_run_at = $2,
		    failure_reason = $3,
		    updated_at = NOW()
		WHERE id = $4
		  AND state = $5
	`

	return s.finish(ctx, query, StateWaiting, nextRunAt, reason, id, StateActive)
}

func (s *PostgresStore) CancelJob(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET state = $1,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $2
		  AND state = $3
	`

	result, err := s.db.ExecContext(ctx, query, StateCanceled, id, StateWaiting)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return ErrJobNotCancelable
	}

	return nil
}

func (s *PostgresStore) DueJobs(ctx context.Context, lane Lane, now time.Time, limit int) ([]Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE lane = $1
		  AND state = $2
		  AND next_run_at <= $3
		ORDER BY next_run_at ASC, created_at ASC
		LIMIT $4
	`

	var jobs []Job
	if err := s.db.SelectContext(ctx, &jobs, query, lane, StateWaiting, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}

	return jobs, nil
}

func (s *PostgresStore) ReclaimStale(ctx context.Context, lane Lane, cutoff time.Time, limit int) ([]Job, error) {
	query := `
		UPDATE jobs
		SET state = $1,
		    worker_id = '',
		    next_run_at = NOW(),
		    updated_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE lane = $2
			  AND state = $3
			  AND updated_at < $4
			ORDER BY updated_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var jobs []Job
	if err := s.db.SelectContext(ctx, &jobs, query, StateWaiting, lane, StateActive, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}

	for i := range jobs {
		s.logger.Warn("Reclaimed stale active job",
			slog.String("job_id", jobs[i].ID),
			slog.String("lane", string(lane)),
			slog.Int("attempt", jobs[i].Attempt),
		)
	}

	return jobs, nil
}

package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Broker is the wake-up channel for workers. Publishing is non-blocking from
// the producer's perspective beyond the broker round trip; a lost dispatch is
// recovered by the due-job sweep.
type Broker interface {
	Publish(ctx context.Context, lane Lane, body []byte) error
}

// Producer enqueues jobs and answers status queries. One Producer serves
// both lanes; it is constructed once at process start and injected wherever
// needed.
type Producer struct {
	store  Store
	broker Broker
	logger *slog.Logger
}

func NewProducer(store Store, broker Broker, logger *slog.Logger) *Producer {
	return &Producer{
		store:  store,
		broker: broker,
		logger: logger,
	}
}

// Enqueue persists a waiting job with the lane's policy and publishes its
// dispatch message. Returns the new job id.
func (p *Producer) Enqueue(ctx context.Context, lane Lane, payload interface{}, policy Policy) (string, error) {
	if !lane.Valid() {
		return "", fmt.Errorf("unknown lane %q", lane)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:            uuid.New().String(),
		Lane:          lane,
		Payload:       body,
		State:         StateWaiting,
		MaxAttempts:   policy.MaxAttempts,
		BackoffBaseMS: policy.BackoffBase.Milliseconds(),
		NextRunAt:     time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}

	if err := p.store.CreateJob(ctx, job); err != nil {
		return "", err
	}

	dispatch, err := json.Marshal(Message{JobID: job.ID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal dispatch message: %w", err)
	}

	if err := p.broker.Publish(ctx, lane, dispatch); err != nil {
		// The waiting row is durable; the sweep will redeliver it.
		p.logger.Warn("Failed to publish job dispatch, sweep will recover it",
			slog.String("job_id", job.ID),
			slog.String("lane", string(lane)),
			slog.String("error", err.Error()),
		)
	}

	p.logger.Info("Job enqueued",
		slog.String("job_id", job.ID),
		slog.String("lane", string(lane)),
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.Duration("backoff_base", policy.BackoffBase),
	)

	return job.ID, nil
}

// JobStatus is the caller-visible view of a job.
type JobStatus struct {
	ID            string          `json:"id"`
	Lane          Lane            `json:"lane"`
	State         State           `json:"state"`
	Attempt       int             `json:"attempt"`
	MaxAttempts   int             `json:"max_attempts"`
	Payload       json.RawMessage `json:"payload"`
	Result        json.RawMessage `json:"result,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Status returns the current state of a job, or ErrJobNotFound.
func (p *Producer) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &JobStatus{
		ID:            job.ID,
		Lane:          job.Lane,
		State:         job.State,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
		Payload:       job.Payload,
		Result:        job.Result,
		FailureReason: job.FailureReason,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}, nil
}

// Cancel removes a job that has not been claimed yet, best-effort. A job
// already claimed or finished returns ErrJobNotCancelable.
func (p *Producer) Cancel(ctx context.Context, jobID string) error {
	if err := p.store.CancelJob(ctx, jobID); err != nil {
		return err
	}

	p.logger.Info("Job canceled", slog.String("job_id", jobID))
	return nil
}

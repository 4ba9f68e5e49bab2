package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/metrics"
	"github.com/advault/keyword-inventory/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	RabbitClient   *rabbitmq.Client
	Runners        map[jobqueue.Lane]*jobqueue.Runner
	Queues         map[jobqueue.Lane]string
	Metrics        *metrics.Metrics
	Concurrency      int
	PrefetchCount    int
	SweepInterval    time.Duration
	SweepBatchSize   int
	StaleActiveAfter time.Duration
}

// dispatch is one broker delivery routed to the shared processing pool.
type dispatch struct {
	lane     jobqueue.Lane
	delivery amqp.Delivery
}

// Worker consumes both lane queues and drives job execution through the
// per-lane runners. One shared goroutine pool serves all lanes; fairness
// between lanes comes from the broker's per-consumer prefetch.
type Worker struct {
	logger         *slog.Logger
	rabbitClient   *rabbitmq.Client
	runners        map[jobqueue.Lane]*jobqueue.Runner
	queues         map[jobqueue.Lane]string
	metrics        *metrics.Metrics
	concurrency      int
	prefetchCount    int
	sweepInterval    time.Duration
	sweepBatchSize   int
	staleActiveAfter time.Duration
	wg               sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:         cfg.Logger,
		rabbitClient:   cfg.RabbitClient,
		runners:        cfg.Runners,
		queues:         cfg.Queues,
		metrics:        cfg.Metrics,
		concurrency:      cfg.Concurrency,
		prefetchCount:    cfg.PrefetchCount,
		sweepInterval:    cfg.SweepInterval,
		sweepBatchSize:   cfg.SweepBatchSize,
		staleActiveAfter: cfg.StaleActiveAfter,
	}
}

// Start begins consuming and processing jobs. It blocks until ctx is
// canceled, then drains in-flight work.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
		slog.Duration("sweep_interval", w.sweepInterval),
	)

	if err := w.rabbitClient.Qos(w.prefetchCount); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	dispatches := make(chan dispatch)

	for lane, queue := range w.queues {
		deliveries, err := w.rabbitClient.Consume(queue, fmt.Sprintf("worker-%s", lane))
		if err != nil {
			return fmt.Errorf("failed to consume lane %s: %w", lane, err)
		}

		w.wg.Add(1)
		go w.forwardDeliveries(ctx, lane, deliveries, dispatches)
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processLoop(ctx, dispatches)
	}

	// Recover dispatches lost to crashes or failed publishes.
	w.wg.Add(1)
	go w.sweepLoop(ctx)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop waits for all in-flight work, including pending retry republishes.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.wg.Wait()
	for _, runner := range w.runners {
		runner.Wait()
	}
	w.logger.Info("Worker stopped")
}

// forwardDeliveries routes one lane's deliveries into the shared pool.
func (w *Worker) forwardDeliveries(ctx context.Context, lane jobqueue.Lane, deliveries <-chan amqp.Delivery, out chan<- dispatch) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Delivery channel closed", slog.String("lane", string(lane)))
				return
			}
			select {
			case <-ctx.Done():
				// Unprocessed delivery returns to the queue on connection close.
				return
			case out <- dispatch{lane: lane, delivery: delivery}:
			}
		}
	}
}

func (w *Worker) processLoop(ctx context.Context, dispatches <-chan dispatch) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-dispatches:
			w.handleDispatch(ctx, d)
		}
	}
}

func (w *Worker) handleDispatch(ctx context.Context, d dispatch) {
	var msg jobqueue.Message
	if err := json.Unmarshal(d.delivery.Body, &msg); err != nil {
		w.logger.Error("Dropping malformed dispatch message",
			slog.String("lane", string(d.lane)),
			slog.String("error", err.Error()),
		)
		w.ack(d.delivery.DeliveryTag)
		return
	}

	runner, ok := w.runners[d.lane]
	if !ok {
		w.logger.Error("No runner for lane", slog.String("lane", string(d.lane)))
		w.ack(d.delivery.DeliveryTag)
		return
	}

	err := runner.Process(ctx, msg.JobID)
	switch {
	case err == nil:
		w.metrics.JobsProcessed.WithLabelValues(string(d.lane), metrics.OutcomeCompleted).Inc()
		w.ack(d.delivery.DeliveryTag)
	case jobqueue.IsRetryable(err):
		w.metrics.JobsProcessed.WithLabelValues(string(d.lane), metrics.OutcomeRetried).Inc()
		w.logger.Warn("Requeueing dispatch after transient error",
			slog.String("job_id", msg.JobID),
			slog.String("lane", string(d.lane)),
			slog.String("error", err.Error()),
		)
		if nackErr := w.rabbitClient.Nack(d.delivery.DeliveryTag, true); nackErr != nil {
			w.logger.Error("Failed to nack delivery", slog.String("error", nackErr.Error()))
		}
	default:
		w.metrics.JobsProcessed.WithLabelValues(string(d.lane), metrics.OutcomeFailed).Inc()
		w.ack(d.delivery.DeliveryTag)
	}
}

func (w *Worker) ack(deliveryTag uint64) {
	if err := w.rabbitClient.Ack(deliveryTag); err != nil {
		w.logger.Error("Failed to ack delivery", slog.String("error", err.Error()))
	}
}

// sweepLoop periodically republishes dispatches for waiting jobs whose
// next_run_at has passed and reclaims active jobs orphaned by a dead worker.
func (w *Worker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for lane, runner := range w.runners {
				if err := runner.RequeueDue(ctx, w.sweepBatchSize); err != nil {
					w.logger.Error("Due-job sweep failed",
						slog.String("lane", string(lane)),
						slog.String("error", err.Error()),
					)
				}

				if w.staleActiveAfter <= 0 {
					continue
				}
				if err := runner.ReclaimStale(ctx, w.staleActiveAfter, w.sweepBatchSize); err != nil {
					w.logger.Error("Stale-job sweep failed",
						slog.String("lane", string(lane)),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

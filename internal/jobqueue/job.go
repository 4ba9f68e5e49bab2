package jobqueue

import (
	"encoding/json"
	"time"
)

// Lane names a work queue. The two lanes are configured independently and
// never share jobs.
type Lane string

const (
	LaneImport Lane = "import"
	LaneExport Lane = "export"
)

func (l Lane) Valid() bool {
	return l == LaneImport || l == LaneExport
}

// State is the job lifecycle state. A job transitions active -> completed or
// active -> failed exactly once per attempt; failure with attempts remaining
// re-enters waiting after the backoff delay.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// Policy is the attempt budget for a job: a fixed attempt count and an
// exponential backoff schedule.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Delay returns the backoff delay after the given failed attempt:
// base * 2^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase * time.Duration(1<<uint(attempt-1))
}

// Default lane policies.
var (
	ImportPolicy = Policy{MaxAttempts: 3, BackoffBase: 5 * time.Second}
	ExportPolicy = Policy{MaxAttempts: 2, BackoffBase: 3 * time.Second}
)

// Job is one unit of queued work.
type Job struct {
	ID            string          `db:"id"`
	Lane          Lane            `db:"lane"`
	Payload       json.RawMessage `db:"payload"`
	State         State           `db:"state"`
	Attempt       int             `db:"attempt"`
	MaxAttempts   int             `db:"max_attempts"`
	BackoffBaseMS int64           `db:"backoff_base_ms"`
	NextRunAt     time.Time       `db:"next_run_at"`
	WorkerID      string          `db:"worker_id"`
	Result        json.RawMessage `db:"result"`
	FailureReason string          `db:"failure_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	StartedAt     *time.Time      `db:"started_at"`
	CompletedAt   *time.Time      `db:"completed_at"`
}

// Policy reconstructs the job's attempt policy.
func (j *Job) Policy() Policy {
	return Policy{
		MaxAttempts: j.MaxAttempts,
		BackoffBase: time.Duration(j.BackoffBaseMS) * time.Millisecond,
	}
}

// Message is the dispatch payload published on a lane's routing key. Durable
// job state lives in the store; the broker only carries the wake-up.
type Message struct {
	JobID string `json:"job_id"`
}

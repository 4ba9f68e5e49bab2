package jobqueue

import "errors"

var (
	// ErrJobNotFound is returned when a job id does not exist in the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when a claim loses the race for a
	// waiting job, or the job is no longer in a claimable state.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not waiting")

	// ErrJobNotCancelable is returned when canceling a job that has already
	// been claimed or finished.
	ErrJobNotCancelable = errors.New("job is not waiting and cannot be canceled")

	// ErrMaxAttemptsExceeded is returned when a job fails with its attempt
	// budget exhausted.
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

	// ErrInvalidPayload is returned when a job payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid job payload")
)

// RetryableError wraps transient infrastructure errors that should trigger a
// broker-level requeue of the dispatch message.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

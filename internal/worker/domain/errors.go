package domain

import "errors"

var (
	// ErrGenerationNotFound is returned when a generation cannot be found in the database
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrAlreadyClaimed is returned when attempting to claim a generation that's already claimed
	ErrAlreadyClaimed = errors.New("generation already claimed or not in PENDING status")

	// ErrInvalidPayload is returned when the generation payload JSON is malformed
	ErrInvalidPayload = errors.New("invalid generation payload")

	// ErrMaxRetriesExceeded is returned when a generation has exceeded its retry limit
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

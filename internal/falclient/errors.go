package falclient

import "errors"

var (
	// ErrValidation is returned when the caller supplied bad input
	ErrValidation = errors.New("invalid request parameters")

	// ErrProtocol is returned when the queue service response has an unexpected shape
	ErrProtocol = errors.New("unexpected response from queue service")

	// ErrTimeout is returned when the poll attempt limit is exceeded
	ErrTimeout = errors.New("poll attempt limit exceeded")

	// ErrEmptyResult is returned when a completed job carries no asset
	ErrEmptyResult = errors.New("completed job returned no asset")

	// ErrNetwork is returned when an HTTP call to the service fails
	ErrNetwork = errors.New("network request failed")

	// ErrStorage is returned when the downloaded asset cannot be written to disk
	ErrStorage = errors.New("failed to store asset")
)

// JobError is the single error type callers see from a failed generation.
// The operation label and the original cause are preserved for diagnostics.
type JobError struct {
	Op  string // "generating video" or "generating image"
	Err error
}

func (e *JobError) Error() string {
	return "error " + e.Op + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// newJobError wraps err once at the job boundary
func newJobError(op string, err error) error {
	return &JobError{Op: op, Err: err}
}

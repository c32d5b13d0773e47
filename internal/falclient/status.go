package falclient

// Status is a job status reported by the queue service
type Status string

// Statuses the fal queue reports while a job is alive
const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// IsTerminal returns true if no further transition occurs from s.
// COMPLETED is the only terminal status this service defines; failure
// statuses surface as protocol errors instead.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// IsPending returns true if the job is still queued or running
func (s Status) IsPending() bool {
	return s == StatusInQueue || s == StatusInProgress
}

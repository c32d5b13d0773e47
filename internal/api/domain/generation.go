package domain

import (
	"errors"
)

// Generation status constants
const (
	GenerationStatusPending   = "PENDING"
	GenerationStatusRunning   = "RUNNING"
	GenerationStatusCompleted = "COMPLETED"
	GenerationStatusFailed    = "FAILED"
	GenerationStatusCanceled  = "CANCELED"
)

var (
	// ErrGenerationNotFound is returned when a generation cannot be found
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrNotCancelable is returned when canceling a generation that already left PENDING
	ErrNotCancelable = errors.New("generation is not in a cancelable state")

	// ErrNotDeletable is returned when deleting a generation that is not terminal
	ErrNotDeletable = errors.New("generation is not in a terminal state")
)

// IsTerminal reports whether status is a final generation state
func IsTerminal(status string) bool {
	switch status {
	case GenerationStatusCompleted, GenerationStatusFailed, GenerationStatusCanceled:
		return true
	default:
		return false
	}
}

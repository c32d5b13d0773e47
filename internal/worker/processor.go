package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/videoforge/mediagen-be/internal/falclient"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
)

// processGeneration processes a single generation with timeout, heartbeat and status updates
func (w *Worker) processGeneration(ctx context.Context, msg *domain.GenerationMessage) error {
	w.logger.Info("Processing generation",
		slog.String("generation_id", msg.GenerationID),
		slog.String("worker_id", w.workerID),
	)

	// Step 1: Claim the generation (PENDING -> RUNNING)
	gen, err := w.storage.ClaimGeneration(ctx, msg.GenerationID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			// Claimed by another worker or canceled meanwhile - don't requeue
			w.logger.Warn("Generation already claimed, skipping",
				slog.String("generation_id", msg.GenerationID),
			)
			return fmt.Errorf("generation already claimed: %w", err)
		}
		return fmt.Errorf("failed to claim generation: %w", err)
	}

	// Step 2: Parse the payload
	payload, err := gen.ParsePayload()
	if err != nil {
		w.logger.Error("Failed to parse generation payload",
			slog.String("generation_id", msg.GenerationID),
			slog.String("error", err.Error()),
		)
		_ = w.storage.UpdateGenerationStatus(ctx, gen.GenerationID, domain.GenerationStatusFailed, nil, fmt.Sprintf("Invalid payload JSON: %s", err.Error()))
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	// Step 3: Per-generation timeout, row value wins over the config default
	jobTimeout := w.jobTimeout
	if gen.TimeoutSeconds > 0 {
		jobTimeout = time.Duration(gen.TimeoutSeconds) * time.Second
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	// Step 4: Heartbeat goroutine for the duration of the execution
	heartbeatDone := make(chan struct{})
	go w.sendHeartbeat(jobCtx, gen.GenerationID, heartbeatDone)
	defer close(heartbeatDone)

	// Step 5: Run the generation against the fal queue
	result, err := w.executor.Execute(jobCtx, gen, payload)

	// Step 6: Record the outcome
	if err != nil {
		w.logger.Error("Generation execution failed",
			slog.String("generation_id", gen.GenerationID),
			slog.String("job_type", gen.JobType),
			slog.String("error", err.Error()),
		)

		if !isTransient(err) {
			// Deterministic failure - retrying won't change the outcome
			if updateErr := w.storage.UpdateGenerationStatus(ctx, gen.GenerationID, domain.GenerationStatusFailed, nil, err.Error()); updateErr != nil {
				w.logger.Error("Failed to update generation status to FAILED",
					slog.String("generation_id", gen.GenerationID),
					slog.String("error", updateErr.Error()),
				)
			}
			return err
		}

		if gen.RetryCount < gen.MaxRetries {
			w.logger.Info("Generation will be retried",
				slog.String("generation_id", gen.GenerationID),
				slog.Int("retry_count", gen.RetryCount),
				slog.Int("max_retries", gen.MaxRetries),
			)
			if retryErr := w.storage.IncrementRetryCount(ctx, gen.GenerationID); retryErr != nil {
				w.logger.Error("Failed to increment retry count",
					slog.String("generation_id", gen.GenerationID),
					slog.String("error", retryErr.Error()),
				)
			}
			// Retryable error triggers NACK with requeue
			return domain.NewRetryableError(fmt.Errorf("generation execution failed: %w", err))
		}

		w.logger.Warn("Generation exceeded max retries",
			slog.String("generation_id", gen.GenerationID),
			slog.Int("retry_count", gen.RetryCount),
			slog.Int("max_retries", gen.MaxRetries),
		)
		if updateErr := w.storage.UpdateGenerationStatus(ctx, gen.GenerationID, domain.GenerationStatusFailed, nil, err.Error()); updateErr != nil {
			w.logger.Error("Failed to update generation status to FAILED",
				slog.String("generation_id", gen.GenerationID),
				slog.String("error", updateErr.Error()),
			)
		}
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	w.logger.Info("Generation completed",
		slog.String("generation_id", gen.GenerationID),
		slog.String("job_type", gen.JobType),
	)

	if updateErr := w.storage.UpdateGenerationStatus(ctx, gen.GenerationID, domain.GenerationStatusCompleted, result, ""); updateErr != nil {
		w.logger.Error("Failed to update generation status to COMPLETED",
			slog.String("generation_id", gen.GenerationID),
			slog.String("error", updateErr.Error()),
		)
		// Generation completed but status update failed - still ACK
	}

	return nil
}

// sendHeartbeat periodically updates the generation's heartbeat timestamp
func (w *Worker) sendHeartbeat(ctx context.Context, generationID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	w.logger.Debug("Generation heartbeat started",
		slog.String("generation_id", generationID),
	)

	for {
		select {
		case <-done:
			w.logger.Debug("Generation heartbeat stopped",
				slog.String("generation_id", generationID),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Generation heartbeat stopped - context canceled",
				slog.String("generation_id", generationID),
			)
			return

		case <-ticker.C:
			if err := w.storage.UpdateGenerationHeartbeat(ctx, generationID); err != nil {
				w.logger.Warn("Failed to update generation heartbeat",
					slog.String("generation_id", generationID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// isTransient reports whether a fal failure may succeed on a later attempt.
// Validation, protocol and empty-result failures are deterministic; network,
// storage, poll-timeout and deadline failures are worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, falclient.ErrValidation) ||
		errors.Is(err, falclient.ErrProtocol) ||
		errors.Is(err, falclient.ErrEmptyResult) {
		return false
	}
	return true
}

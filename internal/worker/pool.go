package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/videoforge/mediagen-be/internal/falclient"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received generation",
				slog.String("worker_name", workerName),
				slog.String("generation_id", msg.GenerationID),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			err := w.processGeneration(ctx, msg)

			// Get RabbitMQ channel for ACK/NACK
			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("generation_id", msg.GenerationID),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Generation processing failed",
					slog.String("worker_name", workerName),
					slog.String("generation_id", msg.GenerationID),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeue(err)

				if nackErr := channel.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("generation_id", msg.GenerationID),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("generation_id", msg.GenerationID),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("generation_id", msg.GenerationID),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Info("Generation completed successfully",
						slog.String("worker_name", workerName),
						slog.String("generation_id", msg.GenerationID),
					)
				}
			}
		}
	}
}

// shouldRequeue determines if a generation should be requeued based on the error type
func (w *Worker) shouldRequeue(err error) bool {
	// Don't requeue if the generation is claimed by another worker or canceled
	if errors.Is(err, domain.ErrAlreadyClaimed) {
		return false
	}

	// Don't requeue if max retries exceeded
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}

	// Don't requeue if invalid payload
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	// Deterministic fal failures won't improve on retry
	if errors.Is(err, falclient.ErrValidation) ||
		errors.Is(err, falclient.ErrProtocol) ||
		errors.Is(err, falclient.ErrEmptyResult) {
		return false
	}

	// Requeue for transient/retryable errors
	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return true
	}

	// Default: don't requeue for unknown errors
	return false
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetGenerationByID retrieves a generation from the database by its ID
func (s *Storage) GetGenerationByID(ctx context.Context, generationID string) (*domain.Generation, error) {
	query := `
		SELECT generation_id, job_type, model_name, payload, status, worker_id, retry_count, max_retries, timeout_seconds
		FROM generations
		WHERE generation_id = $1
	`

	var gen domain.Generation
	var workerID sql.NullString

	err := s.db.QueryRowContext(ctx, query, generationID).Scan(
		&gen.GenerationID,
		&gen.JobType,
		&gen.ModelName,
		&gen.Payload,
		&gen.Status,
		&workerID,
		&gen.RetryCount,
		&gen.MaxRetries,
		&gen.TimeoutSeconds,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	if workerID.Valid {
		gen.WorkerID = workerID.String
	}

	return &gen, nil
}

// ClaimGeneration attempts to claim a generation using optimistic locking.
// Returns full details on success, an error if the generation is already
// claimed, canceled or doesn't exist.
func (s *Storage) ClaimGeneration(ctx context.Context, generationID, workerID string) (*domain.Generation, error) {
	query := `
		UPDATE generations
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE generation_id = $3
		  AND status = $4
		RETURNING generation_id, job_type, model_name, payload, retry_count, max_retries, timeout_seconds
	`

	var gen domain.Generation
	err := s.db.QueryRowContext(ctx, query, domain.GenerationStatusRunning, workerID, generationID, domain.GenerationStatusPending).Scan(
		&gen.GenerationID,
		&gen.JobType,
		&gen.ModelName,
		&gen.Payload,
		&gen.RetryCount,
		&gen.MaxRetries,
		&gen.TimeoutSeconds,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim generation - already claimed, canceled or not found",
				slog.String("generation_id", generationID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim generation: %w", err)
	}

	gen.Status = domain.GenerationStatusRunning
	gen.WorkerID = workerID

	s.logger.Info("Generation claimed successfully",
		slog.String("generation_id", generationID),
		slog.String("worker_id", workerID),
		slog.String("job_type", gen.JobType),
	)

	return &gen, nil
}

// UpdateGenerationStatus updates the generation status and optionally sets result/error
func (s *Storage) UpdateGenerationStatus(ctx context.Context, generationID, status string, result map[string]interface{}, errorMsg string) error {
	query := `
		UPDATE generations
		SET status = $1::text,
			result = $2,
			error_message = $3,
			completed_at = CASE
				WHEN $1::text IN ($4::text, $5::text) THEN NOW()
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE generation_id = $6
	`

	var resultJSON []byte
	var err error
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, query, status, resultJSON, errorMsg, domain.GenerationStatusCompleted, domain.GenerationStatusFailed, generationID)
	if err != nil {
		return fmt.Errorf("failed to update generation status: %w", err)
	}

	s.logger.Info("Generation status updated",
		slog.String("generation_id", generationID),
		slog.String("status", status),
	)

	return nil
}

// IncrementRetryCount bumps the retry counter and releases the generation
// back to PENDING so a requeued message can claim it again
func (s *Storage) IncrementRetryCount(ctx context.Context, generationID string) error {
	query := `
		UPDATE generations
		SET retry_count = retry_count + 1,
		    status = $1,
		    worker_id = NULL,
		    updated_at = NOW()
		WHERE generation_id = $2
	`

	_, err := s.db.ExecContext(ctx, query, domain.GenerationStatusPending, generationID)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	return nil
}

// UpdateGenerationHeartbeat updates the last_heartbeat_at timestamp for a running generation
func (s *Storage) UpdateGenerationHeartbeat(ctx context.Context, generationID string) error {
	query := `
		UPDATE generations
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE generation_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, generationID, domain.GenerationStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update generation heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Generation heartbeat update - no rows affected (generation may not be running)",
			slog.String("generation_id", generationID),
		)
	}

	return nil
}

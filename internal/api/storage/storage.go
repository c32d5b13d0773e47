package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/videoforge/mediagen-be/internal/api/domain"
	"github.com/videoforge/mediagen-be/internal/api/model"
	"github.com/videoforge/mediagen-be/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateGeneration(ctx context.Context, gen *model.Generation) error {
	query := `
		INSERT INTO generations (
			generation_id, idempotency_key, user_id, job_type,
			model_name, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		gen.GenerationID,
		gen.IdempotencyKey,
		gen.UserID,
		gen.JobType,
		gen.ModelName,
		gen.Payload,
		gen.Status,
		gen.CreatedAt,
		gen.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}

	return nil
}

// GetByIdempotencyKey returns the generation previously created with the
// given key, or domain.ErrGenerationNotFound
func (s *Storage) GetByIdempotencyKey(ctx context.Context, key string) (*model.Generation, error) {
	var gen model.Generation
	query := `
		SELECT
			generation_id, idempotency_key, user_id, job_type,
			model_name, payload, status, result, error_message,
			created_at, updated_at
		FROM generations
		WHERE idempotency_key = $1
	`

	err := s.db.GetContext(ctx, &gen, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation by idempotency key: %w", err)
	}

	return &gen, nil
}

func (s *Storage) GetGenerationByID(ctx context.Context, generationID string) (*model.Generation, error) {
	var gen model.Generation
	query := `
		SELECT
			generation_id, idempotency_key, user_id, job_type,
			model_name, payload, status, result, error_message,
			created_at, updated_at
		FROM generations
		WHERE generation_id = $1
	`

	err := s.db.GetContext(ctx, &gen, query, generationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	return &gen, nil
}

// CancelGeneration flips a PENDING generation to CANCELED. A generation the
// worker already picked up cannot be canceled.
func (s *Storage) CancelGeneration(ctx context.Context, generationID string) error {
	query := `
		UPDATE generations
		SET status = $1,
		    updated_at = NOW()
		WHERE generation_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.GenerationStatusCanceled, generationID, domain.GenerationStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		if _, err := s.GetGenerationByID(ctx, generationID); err != nil {
			return err
		}
		return domain.ErrNotCancelable
	}

	return nil
}

// DeleteGeneration removes a generation record. Only terminal generations
// may be deleted.
func (s *Storage) DeleteGeneration(ctx context.Context, generationID string) error {
	query := `
		DELETE FROM generations
		WHERE generation_id = $1
		  AND status IN ($2, $3, $4)
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		generationID,
		domain.GenerationStatusCompleted,
		domain.GenerationStatusFailed,
		domain.GenerationStatusCanceled,
	)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		if _, err := s.GetGenerationByID(ctx, generationID); err != nil {
			return err
		}
		return domain.ErrNotDeletable
	}

	return nil
}

type GenerationFilter struct {
	UserID   string
	JobType  string
	Status   string
	PageSize int
	Cursor   *GenerationCursor
}

type GenerationCursor struct {
	CreatedAt    time.Time
	GenerationID string
}

func (s *Storage) ListGenerations(ctx context.Context, filter GenerationFilter) ([]model.Generation, error) {
	query := `
        SELECT
            generation_id, idempotency_key, user_id, job_type,
            model_name, payload, status, result, error_message,
            created_at, updated_at
        FROM generations
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, generation_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.GenerationID)
		argIdx += 2
	}

	// Order by created_at DESC, generation_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, generation_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var generations []model.Generation
	err := s.db.SelectContext(ctx, &generations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	return generations, nil
}

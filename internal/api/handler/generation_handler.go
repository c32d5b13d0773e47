package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/videoforge/mediagen-be/internal/api/domain"
	"github.com/videoforge/mediagen-be/internal/api/dto"
	"github.com/videoforge/mediagen-be/internal/api/model"
	"github.com/videoforge/mediagen-be/internal/api/storage"
	"github.com/videoforge/mediagen-be/internal/falclient"
)

// CreateGeneration handles POST /api/v1/generations
// Validates the request against the model catalog, persists a PENDING
// generation and hands it to the worker via RabbitMQ.
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !h.catalog.SupportsJobType(req.JobType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported job_type: " + req.JobType,
		})
		return
	}

	if req.JobType == falclient.JobTypeImageToImage && req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "image_url is required for image_to_image generations",
		})
		return
	}

	modelName, err := h.catalog.Resolve(req.JobType, req.ModelName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	// Replaying an idempotency key returns the original record
	if existing, err := h.storage.GetByIdempotencyKey(c.Request.Context(), req.IdempotencyKey); err == nil {
		h.logger.Info("Idempotency key replay",
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.String("generation_id", existing.GenerationID),
		)
		c.JSON(http.StatusOK, toGenerationDTO(existing))
		return
	} else if !errors.Is(err, domain.ErrGenerationNotFound) {
		h.logger.Error("Failed to check idempotency key", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create generation",
		})
		return
	}

	payload, err := json.Marshal(dto.GenerationPayload{
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Duration: req.Duration,
		SaveAt:   req.SaveAt,
	})
	if err != nil {
		h.logger.Error("Failed to marshal payload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create generation",
		})
		return
	}

	gen := model.Generation{
		GenerationID:   uuid.New().String(),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		JobType:        req.JobType,
		ModelName:      modelName,
		Payload:        string(payload),
		Status:         domain.GenerationStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.storage.CreateGeneration(c.Request.Context(), &gen); err != nil {
		h.logger.Error("Failed to create generation", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create generation",
		})
		return
	}

	msg, _ := json.Marshal(map[string]string{"generation_id": gen.GenerationID})
	if err := h.rabbitClient.PublishWithRetry(c.Request.Context(), msg, "application/json"); err != nil {
		// The row stays PENDING; a reaper or manual requeue can pick it up
		h.logger.Error("Failed to publish generation message",
			slog.String("generation_id", gen.GenerationID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue generation",
		})
		return
	}

	h.logger.Info("Generation created",
		slog.String("generation_id", gen.GenerationID),
		slog.String("job_type", gen.JobType),
		slog.String("model", gen.ModelName),
	)

	c.JSON(http.StatusCreated, toGenerationDTO(&gen))
}

// GetGeneration handles GET /api/v1/generations/:generation_id
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	generationID := c.Param("generation_id")

	if _, err := uuid.Parse(generationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "generation_id must be a valid UUID",
		})
		return
	}

	gen, err := h.storage.GetGenerationByID(c.Request.Context(), generationID)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Generation not found",
			})
			return
		}
		h.logger.Error("Failed to get generation", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get generation",
		})
		return
	}

	c.JSON(http.StatusOK, toGenerationDTO(gen))
}

// ListGenerations handles GET /api/v1/generations
// Lists generations with optional filtering and cursor pagination
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	var req dto.ListGenerationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeGenerationCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.GenerationFilter{
		UserID:   req.UserID,
		JobType:  req.JobType,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	generations, err := h.storage.ListGenerations(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list generations", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list generations",
		})
		return
	}

	// One extra row was fetched to detect whether more results exist
	hasMore := len(generations) > req.PageSize
	if hasMore {
		generations = generations[:req.PageSize]
	}

	items := make([]dto.GenerationDTO, len(generations))
	for i := range generations {
		items[i] = *toGenerationDTO(&generations[i])
	}

	var nextCursor string
	if hasMore {
		last := generations[len(generations)-1]
		nextCursor, err = EncodeGenerationCursor(&storage.GenerationCursor{
			CreatedAt:    last.CreatedAt,
			GenerationID: last.GenerationID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListGenerationsResponse{
		Generations: items,
		NextCursor:  nextCursor,
	})
}

// CancelGeneration handles POST /api/v1/generations/:generation_id/cancel
// Only PENDING generations can be canceled; once a worker claimed the job
// there is no abort channel to the fal queue.
func (h *GenerationHandler) CancelGeneration(c *gin.Context) {
	generationID := c.Param("generation_id")

	if _, err := uuid.Parse(generationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "generation_id must be a valid UUID",
		})
		return
	}

	err := h.storage.CancelGeneration(c.Request.Context(), generationID)
	switch {
	case err == nil:
		h.logger.Info("Generation canceled", slog.String("generation_id", generationID))
		c.JSON(http.StatusOK, gin.H{
			"generation_id": generationID,
			"status":        domain.GenerationStatusCanceled,
		})
	case errors.Is(err, domain.ErrGenerationNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Generation not found",
		})
	case errors.Is(err, domain.ErrNotCancelable):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Generation is not in a cancelable state",
		})
	default:
		h.logger.Error("Failed to cancel generation", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel generation",
		})
	}
}

// DeleteGeneration handles DELETE /api/v1/generations/:generation_id
// Only terminal generations can be deleted.
func (h *GenerationHandler) DeleteGeneration(c *gin.Context) {
	generationID := c.Param("generation_id")

	if _, err := uuid.Parse(generationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "generation_id must be a valid UUID",
		})
		return
	}

	err := h.storage.DeleteGeneration(c.Request.Context(), generationID)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, domain.ErrGenerationNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Generation not found",
		})
	case errors.Is(err, domain.ErrNotDeletable):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Generation is not in a terminal state",
		})
	default:
		h.logger.Error("Failed to delete generation", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete generation",
		})
	}
}

// toGenerationDTO converts a database row to its API representation
func toGenerationDTO(gen *model.Generation) *dto.GenerationDTO {
	d := &dto.GenerationDTO{
		GenerationID:   gen.GenerationID,
		IdempotencyKey: gen.IdempotencyKey,
		UserID:         gen.UserID,
		JobType:        gen.JobType,
		ModelName:      gen.ModelName,
		Payload:        gen.Payload,
		Status:         gen.Status,
		CreatedAt:      gen.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      gen.UpdatedAt.Format(time.RFC3339),
	}

	if gen.Result.Valid {
		d.Result = gen.Result.String
	}
	if gen.ErrorMessage.Valid {
		d.ErrorMessage = gen.ErrorMessage.String
	}

	return d
}

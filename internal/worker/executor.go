package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/videoforge/mediagen-be/internal/falclient"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
)

// MediaGenerator is the slice of the fal client the executor needs.
// Narrowed to an interface so tests can swap in a fake.
type MediaGenerator interface {
	GenerateVideo(ctx context.Context, req *falclient.VideoRequest) (*falclient.VideoResult, error)
	GenerateImage(ctx context.Context, req *falclient.ImageRequest) (*falclient.ImageResult, error)
}

// Executor runs a claimed generation against the fal queue API
type Executor struct {
	generator   MediaGenerator
	catalog     *falclient.ModelCatalog
	downloadDir string
	logger      *slog.Logger
}

// NewExecutor creates a new Executor instance
func NewExecutor(generator MediaGenerator, catalog *falclient.ModelCatalog, downloadDir string, logger *slog.Logger) *Executor {
	return &Executor{
		generator:   generator,
		catalog:     catalog,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// Execute dispatches a generation to the fal client by job type and returns
// the result record to persist
func (e *Executor) Execute(ctx context.Context, gen *domain.Generation, payload *domain.GenerationPayload) (map[string]interface{}, error) {
	modelName, err := e.catalog.Resolve(gen.JobType, gen.ModelName)
	if err != nil {
		return nil, err
	}

	saveAt := payload.SaveAt
	if saveAt == "" {
		saveAt = filepath.Join(e.downloadDir, gen.GenerationID+defaultExtension(gen.JobType))
	}

	e.logger.Info("Executing generation",
		slog.String("generation_id", gen.GenerationID),
		slog.String("job_type", gen.JobType),
		slog.String("model", modelName),
		slog.String("save_at", saveAt),
	)

	switch gen.JobType {
	case falclient.JobTypeTextToVideo:
		result, err := e.generator.GenerateVideo(ctx, &falclient.VideoRequest{
			Prompt:    payload.Prompt,
			Duration:  payload.Duration,
			SaveAt:    saveAt,
			ModelName: modelName,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"status":     result.Status,
			"video_path": result.VideoPath,
		}, nil

	case falclient.JobTypeImageToImage:
		result, err := e.generator.GenerateImage(ctx, &falclient.ImageRequest{
			ImageURL:  payload.ImageURL,
			Prompt:    payload.Prompt,
			SaveAt:    saveAt,
			ModelName: modelName,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"status":     result.Status,
			"image_url":  result.ImageURL,
			"image_path": result.ImagePath,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown job type %q", falclient.ErrValidation, gen.JobType)
	}
}

// defaultExtension picks a file extension for derived save paths
func defaultExtension(jobType string) string {
	if jobType == falclient.JobTypeImageToImage {
		return ".png"
	}
	return ".mp4"
}

package handler

import (
	"log/slog"

	"github.com/videoforge/mediagen-be/internal/api/storage"
	"github.com/videoforge/mediagen-be/internal/falclient"
	"github.com/videoforge/mediagen-be/shared/postgresql"
	"github.com/videoforge/mediagen-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Catalog      *falclient.ModelCatalog
}

// GenerationHandler handles generation-related HTTP requests
type GenerationHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient *rabbitmq.Client
	catalog      *falclient.ModelCatalog
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(deps *Dependencies) *GenerationHandler {
	return &GenerationHandler{
		logger:       deps.Logger,
		storage:      storage.NewStorage(deps.DBClient),
		rabbitClient: deps.RabbitClient,
		catalog:      deps.Catalog,
	}
}

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
	"github.com/videoforge/mediagen-be/internal/worker/storage"
	"github.com/videoforge/mediagen-be/shared/postgresql"
	"github.com/videoforge/mediagen-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	DBClient          *postgresql.Client
	RabbitClient      *rabbitmq.Client
	Executor          *Executor
	QueueName         string
	Concurrency       int
	PrefetchCount     int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
}

// Worker consumes generation messages from RabbitMQ and processes them
// through a pool of goroutines
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	storage           *storage.Storage
	executor          *Executor
	queueName         string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	workerID          string
	jobsChan          chan *domain.GenerationMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	return &Worker{
		logger:            cfg.Logger,
		rabbitClient:      cfg.RabbitClient,
		storage:           storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger),
		executor:          cfg.Executor,
		queueName:         cfg.QueueName,
		concurrency:       cfg.Concurrency,
		prefetchCount:     cfg.PrefetchCount,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: heartbeat,
		workerID:          "worker-" + uuid.New().String(),
		jobsChan:          make(chan *domain.GenerationMessage),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing generations. It blocks until ctx is
// canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	// Blocks until shutdown; dispatch errors terminate the worker
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

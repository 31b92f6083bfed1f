package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/catalog"
	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/handlers"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/llm"
	"github.com/quotienthq/quotient/internal/models"
	"github.com/quotienthq/quotient/internal/queue"
	"github.com/quotienthq/quotient/internal/scope"
	"github.com/quotienthq/quotient/internal/services/settings"
	"github.com/quotienthq/quotient/internal/storage"
)

// progressBuffer sizes the progress channel; updates are advisory and may be
// dropped under pressure.
const progressBuffer = 64

// App wires the services together and owns their lifecycle.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Storage         *storage.Manager
	SettingsService *settings.Service
	ChatProvider    interfaces.ChatProvider
	Embedder        interfaces.Embedder

	QueueManager *queue.Manager
	QueueService *queue.Service
	Pipeline     *queue.Pipeline
	Worker       *queue.Worker
	Recorder     *queue.Recorder
	Retention    *queue.Retention

	EstimateHandler *handlers.EstimateHandler
	JobHandler      *handlers.JobHandler
	SettingsHandler *handlers.SettingsHandler
	CatalogHandler  *handlers.CatalogHandler
	StatusHandler   *handlers.StatusHandler

	progressCh chan models.ProgressUpdate
}

// New constructs the application: storage, adapters, pipeline, queue,
// handlers. Nothing starts running until Start.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := storage.NewManager(ctx, logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	a.SettingsService = settings.NewService(storageManager.KeyValueStorage(), logger)

	resolver := llm.NewResolver(a.SettingsService, config, logger)

	chatProvider, err := llm.NewChatProvider(ctx, resolver, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	a.ChatProvider = chatProvider

	pacer := llm.NewIntervalPacer(common.ParseDurationOr(config.Embedding.RateLimit, 0))
	a.Embedder = llm.NewGeminiEmbedder(resolver, pacer, logger)

	engine := scope.NewEngine(a.ChatProvider, logger)
	matcher := catalog.NewMatcher(a.Embedder, storageManager.CatalogStorage(), logger)
	creator := catalog.NewCreator(a.Embedder, storageManager.CatalogStorage(), logger)
	backfiller := catalog.NewBackfiller(a.Embedder, storageManager.CatalogStorage(), logger)

	queueManager, err := queue.NewManager(
		storageManager.BadgerDB().Store().Badger(),
		config.Queue.Name,
		common.ParseDurationOr(config.Queue.VisibilityTimeout, 0),
		logger,
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.QueueManager = queueManager

	a.progressCh = make(chan models.ProgressUpdate, progressBuffer)
	a.Pipeline = queue.NewPipeline(engine, matcher, storageManager.JobStorage(), a.progressCh, logger)
	a.Recorder = queue.NewRecorder(storageManager.JobStorage(), a.progressCh, logger)

	a.Worker = queue.NewWorker(queueManager, storageManager.JobStorage(), a.Pipeline, queue.WorkerConfig{
		PollInterval: common.ParseDurationOr(config.Queue.PollInterval, 0),
		MaxReceive:   config.Queue.MaxReceive,
		Concurrency:  config.Queue.Concurrency,
	}, logger)

	a.QueueService = queue.NewService(queueManager, storageManager.JobStorage(), logger)
	a.Retention = queue.NewRetention(storageManager.JobStorage(), config.Retention, logger)

	a.EstimateHandler = handlers.NewEstimateHandler(a.QueueService, a.Pipeline, a.SettingsService, logger)
	a.JobHandler = handlers.NewJobHandler(a.QueueService, logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.SettingsService, a.ChatProvider, a.Embedder, logger)
	a.CatalogHandler = handlers.NewCatalogHandler(creator, backfiller, storageManager.CatalogStorage(), logger)
	a.StatusHandler = handlers.NewStatusHandler(a.QueueService, storageManager.JobStorage(), a.ChatProvider, a.Embedder, logger)

	return a, nil
}

// Start launches the background machinery: progress recorder, worker pool,
// retention schedule.
func (a *App) Start(ctx context.Context) error {
	a.Recorder.Start(ctx)
	a.Worker.Start(ctx)
	if err := a.Retention.Start(); err != nil {
		return err
	}

	a.Logger.Info().
		Str("provider", a.ChatProvider.ProviderName()).
		Bool("embedding_enabled", a.Embedder.IsEnabled()).
		Msg("Application started")
	return nil
}

// Stop shuts everything down in reverse order: stop accepting work, drain
// workers, flush progress, close storage.
func (a *App) Stop(ctx context.Context) error {
	a.Retention.Stop()
	a.Worker.Stop()
	close(a.progressCh)
	a.Recorder.Wait()

	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}

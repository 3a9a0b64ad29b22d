package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vthnguyen/docstream/internal/config"
	"github.com/vthnguyen/docstream/internal/core/ports"
	"github.com/vthnguyen/docstream/internal/core/usecase"
	"github.com/vthnguyen/docstream/internal/infrastructure/classify"
	"github.com/vthnguyen/docstream/internal/infrastructure/extractor"
	"github.com/vthnguyen/docstream/internal/infrastructure/extractor/ocrhttp"
	"github.com/vthnguyen/docstream/internal/infrastructure/extractor/pdftext"
	"github.com/vthnguyen/docstream/internal/infrastructure/notify/natsnotify"
	"github.com/vthnguyen/docstream/internal/infrastructure/queue/nats"
	"github.com/vthnguyen/docstream/internal/infrastructure/repository/postgres"
	"github.com/vthnguyen/docstream/internal/infrastructure/resilience"
	"github.com/vthnguyen/docstream/internal/infrastructure/scoring"
	"github.com/vthnguyen/docstream/internal/infrastructure/storage/localfs"
	"github.com/vthnguyen/docstream/internal/infrastructure/textclean"
)

type App struct {
	Config config.Config

	Queue     ports.JobQueue
	Repo      ports.SourceFileRepository
	IngestUC  ports.FileIngestor
	ProcessUC ports.FileProcessor
	ExportUC  ports.RecordExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewFileRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	committer := postgres.NewCommitter(db)
	records := postgres.NewRecordRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.New(cfg.NATSURL, cfg.QueueStream, cfg.QueueSubject, cfg.QueueDurable, nats.Options{
		ResilienceExecutor: executor,
		Concurrency:        cfg.QueueConcurrency,
		// One extra queue-level delivery beyond the worker's cap, so the
		// exhaustion decision is always the worker's.
		MaxDeliver: cfg.QueueMaxAttempts + 1,
		AckWait:    cfg.QueueAckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	ocrClient := ocrhttp.New(cfg.OCRBackendURL, ocrhttp.Options{
		Timeout:            cfg.OCRTimeout,
		RequestsPerSecond:  cfg.OCRRequestsPerSec,
		ResilienceExecutor: executor,
	})
	ocrExtractor := extractor.New(pdftext.New(), ocrClient)

	classifier, err := classify.NewFromFile(cfg.ClassifierRulesPath)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	notifier := natsnotify.New(queue.Conn(), cfg.EventsSubject, logger)

	ingestUC := usecase.NewIngestFileUseCase(repo, storage, queue, cfg.MaxUploadBytes)
	processUC := usecase.NewProcessFileUseCase(
		repo,
		storage,
		ocrExtractor,
		textclean.NewCleaner(),
		classifier,
		scoring.New(),
		committer,
		notifier,
		cfg.QueueMaxAttempts,
		logger,
	)
	exportUC := usecase.NewExportRecordsUseCase(records, cfg.ExportLimit)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ExportUC:  exportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

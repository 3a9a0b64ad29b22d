package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vthnguyen/docstream/internal/bootstrap"
	"github.com/vthnguyen/docstream/internal/config"
	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/observability/logging"
	"github.com/vthnguyen/docstream/internal/observability/metrics"
)

const serviceName = "docstream-worker"

func main() {
	cfg := config.Load()
	logger := logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker consuming",
		"subject", cfg.QueueSubject,
		"concurrency", cfg.QueueConcurrency,
		"max_attempts", cfg.QueueMaxAttempts,
	)

	err = app.Queue.Consume(ctx, func(handlerCtx context.Context, job domain.Job) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if !job.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.EnqueuedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()
		processErr := app.ProcessUC.Process(processCtx, job)
		workerMetrics.FinishJob(serviceName, time.Since(start), processErr)
		if processErr != nil {
			workerMetrics.ObserveStageFailure(serviceName, domain.StageName(processErr))
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker consume error: %v", err)
	}
}

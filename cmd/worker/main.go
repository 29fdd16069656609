package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/app"
	"github.com/benvon/crux-journal/internal/config"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/telemetry"
	"github.com/benvon/crux-journal/internal/workers"
)

const (
	dlqInterval  = time.Hour
	dlqRetention = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	noScheduler := flag.Bool("no-scheduler", false, "Consume jobs without scheduling weekly recommendations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Service: telemetry.ServiceWorker, Debug: debugMode, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := app.SetupTracing(ctx, cfg, telemetry.ServiceWorker, zapLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	jobQueue, err := app.ConnectQueue(ctx, nil, cfg.RabbitMQURL, app.DefaultQueueAttempts, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	if !jobQueue.DelayedExchangeAvailable() {
		zapLogger.Warn("delayed_exchange_unavailable_holding_early_jobs")
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	provider, err := app.NewAIProvider(cfg.AI, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.Error(err))
	}
	coachServices := app.NewCoach(cfg, db, provider, zapLogger)
	processor := workers.NewProcessor(coachServices.Tags, coachServices.Recommendations, jobQueue, zapLogger)

	if !*noScheduler {
		scheduler, err := workers.NewRecommendationScheduler(
			jobQueue,
			database.NewUserActivityRepository(db),
			cfg.Scheduler.Schedule,
			cfg.Scheduler.ActivityWindow,
			zapLogger,
		)
		if err != nil {
			zapLogger.Fatal("invalid_recommendation_schedule", zap.Error(err))
		}
		go scheduler.Start(ctx)
	}

	gc := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && ctx.Err() == nil {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	msgs, errs, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	if err := processor.Run(ctx, msgs, errs, cfg.RabbitMQPrefetch); err != nil {
		zapLogger.Error("worker_run_failed", zap.Error(err))
	}
}

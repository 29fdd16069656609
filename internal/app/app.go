// Package app wires configuration into the services shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/config"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/services/ai"
	"github.com/benvon/crux-journal/internal/services/coach"
	"github.com/benvon/crux-journal/internal/telemetry"
)

// NewAIProvider builds the configured generative provider
func NewAIProvider(cfg config.AIConfig, logger *zap.Logger, debug bool) (ai.AIProvider, error) {
	registry := ai.NewDefaultRegistry(logger)
	provider, err := registry.GetProvider(cfg.Provider, map[string]string{
		"api_key":  cfg.APIKey(),
		"model":    cfg.Model,
		"base_url": cfg.BaseURL,
		"debug":    strconv.FormatBool(debug),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
	}
	return provider, nil
}

// Coach holds the coaching services built over one provider and database
type Coach struct {
	Quota           *coach.QuotaGuard
	Usage           *coach.UsageRecorder
	Tags            *coach.TagExtractor
	Recommendations *coach.RecommendationService
	Chat            *coach.ChatService
}

// NewCoach builds the coaching services
func NewCoach(cfg *config.Config, db *database.DB, provider ai.AIProvider, logger *zap.Logger) *Coach {
	users := database.NewUserRepository(db)
	climbs := database.NewClimbRepository(db)
	prefs := database.NewPreferencesRepository(db)

	quota := coach.NewQuotaGuard(database.NewQuotaRepository(db), coach.QuotaLimits{
		Recommendations: cfg.Quotas.RecommendationsPerDay,
		ChatTurns:       cfg.Quotas.ChatTurnsPerDay,
		TagExtractions:  cfg.Quotas.TagExtractionsPerDay,
	})
	usage := coach.NewUsageRecorder(database.NewUsageRepository(db), logger)

	return &Coach{
		Quota: quota,
		Usage: usage,
		Tags:  coach.NewTagExtractor(provider, climbs, quota, usage, cfg.AI.Timeout, logger),
		Recommendations: coach.NewRecommendationService(
			provider, users, climbs,
			database.NewRecommendationRepository(db),
			prefs, quota, usage,
			coach.RecommendationConfig{AttemptTimeout: cfg.AI.Timeout},
			logger,
		),
		Chat: coach.NewChatService(provider, database.NewChatMessageRepository(db), climbs, prefs, quota, usage, logger),
	}
}

// SetupTracing installs the OTLP exporter when enabled. The returned func is always safe to call.
func SetupTracing(ctx context.Context, cfg *config.Config, service string, logger *zap.Logger) telemetry.ShutdownFunc {
	noop := func(context.Context) error { return nil }
	if !cfg.OTELEnabled {
		return noop
	}
	if cfg.OTELEndpoint == "" {
		logger.Warn("otel_enabled_but_endpoint_not_configured")
		return noop
	}
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: service,
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.OTELSampleRatio,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		logger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		return noop
	}
	logger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
	return shutdown
}

// Queue connection retry defaults. RabbitMQ often starts after the API in compose setups.
const (
	DefaultQueueAttempts = 10
	initialQueueDelay    = 2 * time.Second
	maxQueueDelay        = 30 * time.Second
)

// QueueDialer opens a queue connection
type QueueDialer func(url string) (*queue.RabbitMQQueue, error)

// ConnectQueue dials RabbitMQ with exponential backoff until it succeeds, attempts run out or ctx ends
func ConnectQueue(ctx context.Context, dial QueueDialer, url string, attempts int, logger *zap.Logger) (*queue.RabbitMQQueue, error) {
	if dial == nil {
		dial = queue.NewRabbitMQQueue
	}
	if attempts <= 0 {
		attempts = DefaultQueueAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := dial(url)
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return q, nil
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := backoff(attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", attempts),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", attempts, lastErr)
}

func backoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxQueueDelay
	}
	return min(initialQueueDelay*time.Duration(1<<uint(attempt)), maxQueueDelay)
}

package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
)

const dlqSweepTimeout = 2 * time.Minute

// DLQPurger removes dead-lettered jobs older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// GarbageCollector keeps the dead-letter queue bounded. It sweeps once on start and then
// every interval, dropping messages older than retention.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a sweeper for purger.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps until ctx is cancelled and returns ctx.Err().
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweep(ctx)
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	n, err := gc.collect(ctx)
	if err != nil {
		gc.logger.Error("dlq_gc_failed", zap.String("error", logpkg.SanitizeError(err)))
		return
	}
	if n > 0 {
		gc.logger.Info("dlq_gc_purged",
			zap.Int("purged", n),
			zap.Duration("retention", gc.retention),
		)
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, dlqSweepTimeout)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return 0, fmt.Errorf("purge dead-letter queue: %w", err)
	}
	return n, nil
}

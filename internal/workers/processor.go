package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/services/ai"
	"github.com/benvon/crux-journal/internal/services/coach"
)

// JobProcessor handles one decoded job
type JobProcessor func(ctx context.Context, job *queue.Job) error

// TagExtractor is the part of coach.TagExtractor the worker uses
type TagExtractor interface {
	Extract(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error)
}

// RecommendationGenerator is the part of coach.RecommendationService the worker uses
type RecommendationGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error)
}

var (
	_ TagExtractor            = (*coach.TagExtractor)(nil)
	_ RecommendationGenerator = (*coach.RecommendationService)(nil)
)

// maxEarlyHold caps how long a job delivered before its NotBefore is held
const maxEarlyHold = 30 * time.Second

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent job failure")

// Processor dispatches queue messages to the registered job processors
type Processor struct {
	tags     TagExtractor
	recs     RecommendationGenerator
	jobQueue queue.JobQueue // for re-enqueueing jobs with a delay
	logger   *zap.Logger
	registry map[queue.JobType]JobProcessor
	now      func() time.Time
}

// NewProcessor creates a processor with the tag_extraction and weekly_recommendation jobs registered
func NewProcessor(tags TagExtractor, recs RecommendationGenerator, jobQueue queue.JobQueue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		tags:     tags,
		recs:     recs,
		jobQueue: jobQueue,
		logger:   logger,
		registry: make(map[queue.JobType]JobProcessor),
		now:      time.Now,
	}
	p.RegisterProcessor(queue.JobTypeTagExtraction, p.ProcessTagExtractionJob)
	p.RegisterProcessor(queue.JobTypeWeeklyRecommendation, p.ProcessWeeklyRecommendationJob)
	return p
}

// RegisterProcessor registers a processor for a job type
func (p *Processor) RegisterProcessor(typ queue.JobType, proc JobProcessor) {
	p.registry[typ] = proc
}

// ProcessTagExtractionJob tags one climb from its notes
func (p *Processor) ProcessTagExtractionJob(ctx context.Context, job *queue.Job) error {
	if job.ClimbID == nil {
		return fmt.Errorf("%w: climb_id is required for tag extraction job", errPermanent)
	}

	outcome, err := p.tags.Extract(ctx, job.UserID, *job.ClimbID)
	if err != nil {
		if errors.Is(err, coach.ErrClimbNotFound) || errors.Is(err, coach.ErrForbidden) {
			return fmt.Errorf("%w: %w", errPermanent, err)
		}
		return fmt.Errorf("failed to extract tags: %w", err)
	}

	p.logger.Info("tag_extraction_job_done",
		zap.String("job_id", job.ID.String()),
		zap.String("climb_id", job.ClimbID.String()),
		zap.Bool("tags_extracted", outcome.TagsExtracted),
		zap.Int("attempts", outcome.Attempts),
	)
	return nil
}

// ProcessWeeklyRecommendationJob runs the recommendation pipeline for one user.
// A used-up daily allowance or a pipeline that already exhausted its own retries is not retried.
func (p *Processor) ProcessWeeklyRecommendationJob(ctx context.Context, job *queue.Job) error {
	outcome, err := p.recs.Generate(ctx, job.UserID)
	switch {
	case err == nil:
	case coach.IsQuotaError(err):
		p.logger.Info("weekly_recommendation_skipped_quota",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return nil
	case errors.Is(err, coach.ErrGenerationFailed):
		p.logger.Warn("weekly_recommendation_failed",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempts", outcome.Attempts),
		)
		return nil
	case errors.Is(err, coach.ErrUserNotFound):
		return fmt.Errorf("%w: %w", errPermanent, err)
	default:
		return fmt.Errorf("failed to generate weekly recommendation: %w", err)
	}

	p.logger.Info("weekly_recommendation_job_done",
		zap.String("job_id", job.ID.String()),
		zap.String("state", string(outcome.State)),
		zap.Int("attempts", outcome.Attempts),
	)
	return nil
}

// ProcessJob processes a message based on its job type using the processor registry
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.ExpiredAt(p.now()) {
		p.logger.Info("job_expired",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}

	if !job.ReadyAt(p.now()) {
		// Delivered early without the delayed exchange. Hold it briefly so the
		// queue does not spin, then push it back with its remaining delay.
		wait := job.NotBefore.Sub(p.now())
		if wait > maxEarlyHold {
			wait = maxEarlyHold
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			if nackErr := msg.Nack(true); nackErr != nil {
				return fmt.Errorf("failed to nack early job on shutdown: %w", nackErr)
			}
			return ctx.Err()
		case <-timer.C:
		}
		return p.requeue(ctx, msg, job, job.NotBefore.Sub(p.now()), false)
	}

	proc, ok := p.registry[job.Type]
	if !ok {
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", job.ID.String()),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := proc(ctx, job); err != nil {
		return p.handleJobError(ctx, msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack %s job: %w", job.Type, ackErr)
	}
	return nil
}

// handleJobError retries transient failures with a delay and dead-letters the rest
func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.String("error", logpkg.SanitizeError(err)),
	}

	if errors.Is(err, errPermanent) || isPermanentProviderError(err) || !job.CanRetry() {
		p.logger.Error("job_dead_lettered", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Error("failed_to_nack_job_to_dlq", zap.String("error", logpkg.SanitizeError(nackErr)))
		}
		return fmt.Errorf("%s job failed: %w", job.Type, err)
	}

	// Provider quota and rate limit errors get long delays; everything else short exponential backoff
	delay := ai.RetryDelay(err, job.RetryCount)
	fields = append(fields, zap.Duration("retry_in", delay))
	switch {
	case ai.IsQuotaError(err):
		p.logger.Warn("job_provider_quota_exhausted", fields...)
	case ai.IsRateLimitError(err):
		p.logger.Warn("job_rate_limited", fields...)
	default:
		p.logger.Warn("job_failed_will_retry", fields...)
	}

	if rqErr := p.requeue(ctx, msg, job, delay, true); rqErr != nil {
		return rqErr
	}
	return fmt.Errorf("%s job failed (will retry): %w", job.Type, err)
}

// isPermanentProviderError reports provider rejections that will fail again on retry,
// such as a bad request or revoked credentials.
func isPermanentProviderError(err error) bool {
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return !ai.IsQuotaError(err) && !ai.IsTransientError(err)
}

// requeue acks msg and enqueues a copy of job that is not processed before delay has passed.
// Without a queue the message is nacked back onto the queue.
func (p *Processor) requeue(ctx context.Context, msg queue.MessageInterface, job *queue.Job, delay time.Duration, countRetry bool) error {
	if p.jobQueue == nil {
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to nack job for retry: %w", nackErr)
		}
		return nil
	}

	notBefore := p.now().Add(delay)
	delayed := job.Deferred(notBefore)
	if countRetry {
		delayed.RetryCount++
	}

	if err := p.jobQueue.Enqueue(ctx, delayed); err != nil {
		p.logger.Error("failed_to_reenqueue_job",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			p.logger.Error("failed_to_nack_job", zap.String("error", logpkg.SanitizeError(nackErr)))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack re-enqueued job: %w", ackErr)
	}
	p.logger.Debug("job_reenqueued",
		zap.String("job_id", job.ID.String()),
		zap.Time("not_before", notBefore),
		zap.Int("retry_count", delayed.RetryCount),
	)
	return nil
}

package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/anonymize"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/ai"
	"github.com/benvon/crux-journal/internal/telemetry"
	"github.com/benvon/crux-journal/internal/validation"
)

const (
	// TagConfidenceThreshold is the minimum confidence for a tag to be applied
	TagConfidenceThreshold = 70
	// DefaultTagAttempts is how many extractions are tried per climb
	DefaultTagAttempts = 2
	// DefaultNotesTokenBudget bounds how much of the notes is sent
	DefaultNotesTokenBudget = 500

	tagExtractionMaxTokens = 300

	// ManualTaggingHint is returned whenever tags could not be extracted
	ManualTaggingHint = "Automatic tagging is unavailable right now. You can add styles and failure reasons yourself."
)

// TagOutcome is the result of one extraction run
type TagOutcome struct {
	TagsExtracted bool                   `json:"tags_extracted"`
	AddedStyles   []models.ClimbStyle    `json:"added_styles,omitempty"`
	AddedReasons  []models.FailureReason `json:"added_reasons,omitempty"`
	Climb         *models.Climb          `json:"climb,omitempty"`
	Attempts      int                    `json:"attempts"`
	Hint          string                 `json:"hint,omitempty"`
}

// TagExtractor infers style and failure tags from climb notes
type TagExtractor struct {
	provider    ai.AIProvider
	climbs      database.ClimbRepositoryInterface
	quota       *QuotaGuard
	usage       *UsageRecorder
	anon        *anonymize.Anonymizer
	maxAttempts int
	tokenBudget int
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewTagExtractor creates a tag extractor. Each attempt is bounded by attemptTimeout,
// or DefaultAttemptTimeout when it is not positive.
func NewTagExtractor(
	provider ai.AIProvider,
	climbs database.ClimbRepositoryInterface,
	quota *QuotaGuard,
	usage *UsageRecorder,
	attemptTimeout time.Duration,
	logger *zap.Logger,
) *TagExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &TagExtractor{
		provider:    provider,
		climbs:      climbs,
		quota:       quota,
		usage:       usage,
		anon:        anonymize.Default,
		maxAttempts: DefaultTagAttempts,
		tokenBudget: DefaultNotesTokenBudget,
		timeout:     attemptTimeout,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      logger,
		tracer:      telemetry.Tracer("coach"),
	}
}

// Extract tags one climb. Only unknown climbs, owner mismatches and storage
// failures return an error; every other miss is a successful outcome with a hint.
func (e *TagExtractor) Extract(ctx context.Context, userID, climbID uuid.UUID) (*TagOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "coach.tags.extract")
	defer span.End()
	ctx = ai.WithClimbID(ai.WithUserID(ctx, userID), climbID)

	climb, err := e.climbs.GetByID(ctx, climbID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrClimbNotFound
		}
		return nil, fmt.Errorf("failed to load climb: %w", err)
	}
	if climb.UserID != userID {
		return nil, ErrForbidden
	}

	notes := strings.TrimSpace(e.anon.Notes(climb.Notes))
	if notes == "" {
		return &TagOutcome{Climb: climb, Hint: ManualTaggingHint}, nil
	}

	if err := e.quota.Consume(ctx, userID, models.QuotaTagExtraction); err != nil {
		if IsQuotaError(err) {
			e.logger.Info("tag_extraction_quota_exhausted",
				zap.String("user_id", ai.HashUserID(userID.String())),
			)
			return &TagOutcome{Climb: climb, Hint: ManualTaggingHint}, nil
		}
		return nil, err
	}

	notes = truncateToTokenBudget(notes, e.tokenBudget, ai.EstimateTokens)
	req := ai.CompletionRequest{
		Operation:    ai.OperationTagExtraction,
		System:       buildTagExtractionSystemPrompt(),
		Messages:     []ai.ChatMessage{{Role: "user", Content: buildTagExtractionPrompt(climb, notes)}},
		JSONResponse: true,
		MaxTokens:    tagExtractionMaxTokens,
		Temperature:  0.2,
	}

	outcome := &TagOutcome{Climb: climb}
	var result *models.TagExtractionResult
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		outcome.Attempts = attempt
		if attempt > 1 {
			// Linear backoff: n seconds before retry n
			if err := e.sleep(ctx, time.Duration(attempt-1)*time.Second); err != nil {
				break
			}
		}

		result, err = e.attempt(ctx, userID, req)
		if err == nil {
			break
		}
		e.logger.Warn("tag_extraction_attempt_failed",
			zap.String("climb_id", climbID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	if result == nil {
		span.SetAttributes(attribute.Bool("coach.tags_extracted", false))
		e.logger.Warn("tag_extraction_exhausted",
			zap.String("climb_id", climbID.String()),
			zap.Int("attempts", outcome.Attempts),
		)
		outcome.Hint = ManualTaggingHint
		return outcome, nil
	}

	styles, reasons := confidentTags(result, TagConfidenceThreshold)
	before := len(climb.Style)
	beforeReasons := len(climb.FailureReasons)
	climb.MergeExtractedTags(styles, reasons)
	extractedAt := e.now().UTC()
	climb.TagsExtractedAt = &extractedAt

	if err := e.climbs.UpdateTags(ctx, climb); err != nil {
		return nil, fmt.Errorf("failed to save extracted tags: %w", err)
	}

	outcome.TagsExtracted = true
	outcome.AddedStyles = append([]models.ClimbStyle(nil), climb.Style[before:]...)
	outcome.AddedReasons = append([]models.FailureReason(nil), climb.FailureReasons[beforeReasons:]...)
	span.SetAttributes(
		attribute.Bool("coach.tags_extracted", true),
		attribute.Int("coach.tags_added", len(outcome.AddedStyles)+len(outcome.AddedReasons)),
	)
	e.logger.Info("tags_extracted",
		zap.String("climb_id", climbID.String()),
		zap.Int("added_styles", len(outcome.AddedStyles)),
		zap.Int("added_reasons", len(outcome.AddedReasons)),
	)
	return outcome, nil
}

func (e *TagExtractor) attempt(ctx context.Context, userID uuid.UUID, req ai.CompletionRequest) (*models.TagExtractionResult, error) {
	completion, err := completeWithin(ctx, e.provider, req, e.timeout)
	if err != nil {
		e.usage.Record(ctx, userID, ai.OperationTagExtraction, e.provider.Model(), ai.Usage{}, false)
		return nil, err
	}

	result, err := validation.ParseTagExtraction(completion.Content)
	e.usage.Record(ctx, userID, ai.OperationTagExtraction, modelOf(completion, e.provider), completion.Usage, err == nil)
	if err != nil {
		return nil, fmt.Errorf("invalid tag extraction: %w", err)
	}
	return result, nil
}

// confidentTags keeps tags at or above threshold, in response order
func confidentTags(result *models.TagExtractionResult, threshold float64) ([]models.ClimbStyle, []models.FailureReason) {
	var styles []models.ClimbStyle
	for _, t := range result.StyleTags {
		if t.Confidence >= threshold {
			styles = append(styles, t.Name)
		}
	}
	var reasons []models.FailureReason
	for _, t := range result.FailureReasons {
		if t.Confidence >= threshold {
			reasons = append(reasons, t.Name)
		}
	}
	return styles, reasons
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

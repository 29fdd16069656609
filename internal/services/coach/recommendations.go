package coach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benvon/crux-journal/internal/anonymize"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/patterns"
	"github.com/benvon/crux-journal/internal/services/ai"
	"github.com/benvon/crux-journal/internal/telemetry"
	"github.com/benvon/crux-journal/internal/validation"
)

// State is a step of the recommendation pipeline
type State string

const (
	StatePreflight      State = "preflight"
	StateAttempting     State = "attempting"
	StateSucceeded      State = "succeeded"
	StateDegradedCached State = "degraded_cached"
	StateHardFailed     State = "hard_failed"
	StateRejected       State = "rejected"
)

const (
	// DefaultMaxAttempts is how many generations are tried before falling back
	DefaultMaxAttempts = 3
	// DefaultAttemptTimeout bounds a single generation
	DefaultAttemptTimeout = 30 * time.Second

	recommendationMaxTokens = 1500

	// CachedWarning is shown when an earlier plan is served instead of a new one
	CachedWarning = "We couldn't generate a new plan right now, so here is your most recent one."

	generationFailedMessage = "Unable to generate a new plan after repeated attempts"
)

// Outcome is the terminal result of one pipeline run
type Outcome struct {
	State          State                  `json:"state"`
	Recommendation *models.Recommendation `json:"recommendation,omitempty"`
	Attempts       int                    `json:"attempts"`
	Warning        string                 `json:"warning,omitempty"`
}

// RecommendationConfig tunes the retry loop
type RecommendationConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// RecommendationService generates weekly plans with validation, retries and a cached fallback
type RecommendationService struct {
	provider ai.AIProvider
	users    database.UserRepositoryInterface
	climbs   database.ClimbRepositoryInterface
	recs     database.RecommendationRepositoryInterface
	prefs    database.PreferencesRepositoryInterface
	quota    *QuotaGuard
	usage    *UsageRecorder
	cfg      RecommendationConfig
	anon     *anonymize.Anonymizer
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewRecommendationService creates a recommendation service
func NewRecommendationService(
	provider ai.AIProvider,
	users database.UserRepositoryInterface,
	climbs database.ClimbRepositoryInterface,
	recs database.RecommendationRepositoryInterface,
	prefs database.PreferencesRepositoryInterface,
	quota *QuotaGuard,
	usage *UsageRecorder,
	cfg RecommendationConfig,
	logger *zap.Logger,
) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	return &RecommendationService{
		provider: provider,
		users:    users,
		climbs:   climbs,
		recs:     recs,
		prefs:    prefs,
		quota:    quota,
		usage:    usage,
		cfg:      cfg,
		anon:     anonymize.Default,
		logger:   logger,
		tracer:   telemetry.Tracer("coach"),
	}
}

// Latest returns the user's most recent usable plan
func (s *RecommendationService) Latest(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	rec, err := s.recs.LatestValid(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Generate runs Preflight, then up to MaxAttempts attempts, and ends in Succeeded,
// DegradedCached or HardFailed. Preflight failures end in Rejected.
// The Outcome is always non-nil.
func (s *RecommendationService) Generate(ctx context.Context, userID uuid.UUID) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "coach.recommendation.generate")
	defer span.End()
	ctx = ai.WithUserID(ctx, userID)

	out := &Outcome{State: StatePreflight}
	input, err := s.preflight(ctx, userID)
	if err != nil {
		out.State = StateRejected
		span.SetAttributes(attribute.String("coach.state", string(out.State)))
		span.RecordError(err)
		return out, err
	}

	prompt, err := buildRecommendationPrompt(*input)
	if err != nil {
		out.State = StateRejected
		return out, err
	}
	req := ai.CompletionRequest{
		Operation:    ai.OperationRecommendations,
		System:       recommendationSystemPrompt,
		Messages:     []ai.ChatMessage{{Role: "user", Content: prompt}},
		JSONResponse: true,
		MaxTokens:    recommendationMaxTokens,
		Temperature:  0.7,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		out.State = StateAttempting
		out.Attempts = attempt

		content, err := s.attempt(ctx, userID, req)
		if err == nil {
			rec := &models.Recommendation{
				UserID:  userID,
				Content: content,
				Model:   s.provider.Model(),
			}
			if err := s.recs.Create(ctx, rec); err != nil {
				out.State = StateHardFailed
				span.SetStatus(codes.Error, "persist failed")
				return out, fmt.Errorf("failed to save recommendation: %w", err)
			}
			out.State = StateSucceeded
			out.Recommendation = rec
			span.SetAttributes(
				attribute.String("coach.state", string(out.State)),
				attribute.Int("coach.attempts", attempt),
			)
			s.logger.Info("recommendation_generated",
				zap.String("user_id", ai.HashUserID(userID.String())),
				zap.Int("attempt", attempt),
			)
			return out, nil
		}

		lastErr = err
		s.logger.Warn("recommendation_attempt_failed",
			zap.String("user_id", ai.HashUserID(userID.String())),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return s.fallback(ctx, span, userID, out, lastErr)
}

// preflight checks the user and quota, then loads the prompt context
func (s *RecommendationService) preflight(ctx context.Context, userID uuid.UUID) (*recommendationInput, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.quota.Consume(ctx, userID, models.QuotaRecommendation); err != nil {
		return nil, err
	}

	var (
		climbs []models.Climb
		prefs  *models.CoachingPreferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		climbs, err = s.climbs.ListRecentByUser(gctx, userID, patterns.WindowSize)
		if err != nil {
			return fmt.Errorf("failed to load climbs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.prefs.GetByUserID(gctx, userID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		prefs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	input := &recommendationInput{
		Climbs:      s.anon.Climbs(climbs),
		Analysis:    anonymize.Analysis(patterns.Extract(climbs)),
		Preferences: preferenceSummary(prefs, s.anon.Notes),
	}
	if findings := anonymize.ValidateAnonymizedData(input); len(findings) > 0 {
		s.logger.Warn("anonymization_audit_findings",
			zap.String("user_id", ai.HashUserID(userID.String())),
			zap.Any("findings", findings),
		)
	}
	return input, nil
}

// attempt makes one generation raced against the attempt timeout and validates it.
// Every call is accounted, successful or not.
func (s *RecommendationService) attempt(ctx context.Context, userID uuid.UUID, req ai.CompletionRequest) (*models.RecommendationContent, error) {
	completion, err := completeWithin(ctx, s.provider, req, s.cfg.AttemptTimeout)
	if err != nil {
		s.usage.Record(ctx, userID, ai.OperationRecommendations, s.provider.Model(), ai.Usage{}, false)
		return nil, err
	}

	content, err := validation.ParseRecommendationContent(completion.Content)
	s.usage.Record(ctx, userID, ai.OperationRecommendations, modelOf(completion, s.provider), completion.Usage, err == nil)
	if err != nil {
		return nil, fmt.Errorf("invalid recommendation: %w", err)
	}
	return content, nil
}

// fallback serves the latest usable plan or persists an error row
func (s *RecommendationService) fallback(ctx context.Context, span trace.Span, userID uuid.UUID, out *Outcome, lastErr error) (*Outcome, error) {
	// Finish bookkeeping even if the caller went away mid-retry
	ctx = context.WithoutCancel(ctx)
	message := generationFailedMessage

	latest, err := s.recs.LatestValid(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		out.State = StateHardFailed
		span.SetStatus(codes.Error, "fallback lookup failed")
		return out, fmt.Errorf("failed to load cached recommendation: %w", err)
	}

	if latest.Valid() {
		if err := s.recs.AnnotateError(ctx, latest.ID, message); err != nil {
			s.logger.Error("recommendation_annotate_failed", zap.Error(err))
		}
		latest.IsCached = true
		latest.ErrorMessage = &message
		out.State = StateDegradedCached
		out.Recommendation = latest
		out.Warning = CachedWarning
		span.SetAttributes(attribute.String("coach.state", string(out.State)))
		s.logger.Warn("recommendation_served_from_cache",
			zap.String("user_id", ai.HashUserID(userID.String())),
			zap.Int("attempts", out.Attempts),
			zap.Error(lastErr),
		)
		return out, nil
	}

	errRow := &models.Recommendation{
		UserID:       userID,
		ErrorMessage: &message,
		Model:        s.provider.Model(),
	}
	if err := s.recs.Create(ctx, errRow); err != nil {
		s.logger.Error("recommendation_error_row_failed", zap.Error(err))
	}
	out.State = StateHardFailed
	out.Recommendation = errRow
	span.SetAttributes(attribute.String("coach.state", string(out.State)))
	span.SetStatus(codes.Error, "generation failed")
	s.logger.Error("recommendation_generation_failed",
		zap.String("user_id", ai.HashUserID(userID.String())),
		zap.Int("attempts", out.Attempts),
		zap.Error(lastErr),
	)
	return out, ErrGenerationFailed
}

func modelOf(c *ai.Completion, p ai.AIProvider) string {
	if c != nil && c.Model != "" {
		return c.Model
	}
	return p.Model()
}

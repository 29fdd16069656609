package coach

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/ai"
)

// UsageRecorder writes one accounting row per generative call
type UsageRecorder struct {
	repo   database.UsageRepositoryInterface
	logger *zap.Logger
}

// NewUsageRecorder creates a usage recorder
func NewUsageRecorder(repo database.UsageRepositoryInterface, logger *zap.Logger) *UsageRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageRecorder{repo: repo, logger: logger}
}

// Record stores usage for one call. Failed calls are recorded at zero cost.
// Storage errors are logged and never surface to the caller.
func (r *UsageRecorder) Record(ctx context.Context, userID uuid.UUID, endpoint, model string, usage ai.Usage, succeeded bool) {
	cost := 0.0
	if succeeded {
		cost = ai.Cost(model, usage)
	}

	rec := &models.UsageRecord{
		UserID:           userID,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens(),
		CostUSD:          cost,
		Model:            model,
		Endpoint:         endpoint,
		Succeeded:        succeeded,
	}

	// Accounting outlives a cancelled request
	if err := r.repo.Create(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Error("usage_record_failed",
			zap.String("user_id", ai.HashUserID(userID.String())),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("usage_recorded",
		zap.String("endpoint", endpoint),
		zap.String("model", model),
		zap.Int64("total_tokens", rec.TotalTokens),
		zap.Float64("cost_usd", cost),
		zap.Bool("succeeded", succeeded),
	)
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/crux-journal/internal/models"
	"github.com/google/uuid"
)

// UsageRepository records generative call accounting
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create inserts one usage record
func (r *UsageRepository) Create(ctx context.Context, rec *models.UsageRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
	}

	query := `
		INSERT INTO usage_records (id, user_id, prompt_tokens, completion_tokens, total_tokens, cost_usd,
			model, endpoint, succeeded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.CostUSD,
		rec.Model,
		rec.Endpoint,
		rec.Succeeded,
		time.Now().UTC(),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// UsageTotals aggregates usage over a period
type UsageTotals struct {
	Calls       int64   `json:"calls"`
	TotalTokens int64   `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// TotalsSince sums a user's usage from since onward
func (r *UsageRepository) TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*UsageTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0)::float8
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
	`

	totals := &UsageTotals{}
	err := r.db.QueryRowContext(ctx, query, userID, since.UTC()).Scan(
		&totals.Calls,
		&totals.TotalTokens,
		&totals.CostUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}

	return totals, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/crux-journal/internal/models"
	"github.com/google/uuid"
)

// QuotaRepository stores per-user daily counters
type QuotaRepository struct {
	db *DB
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// UTCDate truncates t to midnight UTC
func UTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TryIncrement atomically consumes one unit of the day's quota.
// A counter from an earlier day restarts at 1. Returns the new count and
// false without changing anything when the counter already reached limit.
func (r *QuotaRepository) TryIncrement(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, limit int, now time.Time) (int, bool, error) {
	if limit <= 0 {
		return 0, false, nil
	}

	query := `
		INSERT INTO quota_counters (user_id, kind, count, limit_date, updated_at)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (user_id, kind) DO UPDATE
		SET count = CASE
		        WHEN quota_counters.limit_date = EXCLUDED.limit_date THEN quota_counters.count + 1
		        ELSE 1
		    END,
		    limit_date = EXCLUDED.limit_date,
		    updated_at = EXCLUDED.updated_at
		WHERE quota_counters.limit_date <> EXCLUDED.limit_date
		   OR quota_counters.count < $5
		RETURNING count
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, kind, UTCDate(now), now.UTC(), limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return limit, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment %s quota: %w", kind, err)
	}

	return count, true, nil
}

// Get returns today's count for one counter. Stale or missing counters read as 0.
func (r *QuotaRepository) Get(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, now time.Time) (*models.QuotaCounter, error) {
	today := UTCDate(now)
	counter := &models.QuotaCounter{UserID: userID, Kind: kind, LimitDate: today}

	query := `
		SELECT count, limit_date, updated_at
		FROM quota_counters
		WHERE user_id = $1 AND kind = $2
	`

	var limitDate time.Time
	var count int
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query, userID, kind).Scan(&count, &limitDate, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return counter, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s quota: %w", kind, err)
	}

	counter.UpdatedAt = updatedAt
	if UTCDate(limitDate).Equal(today) {
		counter.Count = count
	}
	return counter, nil
}

// Reset clears a counter for today
func (r *QuotaRepository) Reset(ctx context.Context, userID uuid.UUID, kind models.QuotaKind) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quota_counters WHERE user_id = $1 AND kind = $2`, userID, kind)
	if err != nil {
		return fmt.Errorf("failed to reset %s quota: %w", kind, err)
	}
	return nil
}

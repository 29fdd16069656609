package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserActivityRepository tracks when climbers last used the API. The weekly
// recommendation run reads it to decide who gets a plan.
type UserActivityRepository struct {
	db  *DB
	now func() time.Time
}

// NewUserActivityRepository creates a new user activity repository
func NewUserActivityRepository(db *DB) *UserActivityRepository {
	return &UserActivityRepository{db: db, now: time.Now}
}

// UpdateLastInteraction stamps userID as seen now. Seeing a paused user resumes their plan.
func (r *UserActivityRepository) UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error {
	const upsert = `
		INSERT INTO user_activity (user_id, last_api_interaction, weekly_plan_paused, created_at, updated_at)
		VALUES ($1, $2, false, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET last_api_interaction = EXCLUDED.last_api_interaction,
		    weekly_plan_paused = false,
		    updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, upsert, userID, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to record activity for user %s: %w", userID, err)
	}
	return nil
}

// ActiveUsersSince lists unpaused users seen at or after since, ordered by ID so runs are repeatable
func (r *UserActivityRepository) ActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	const q = `
		SELECT user_id FROM user_activity
		WHERE NOT weekly_plan_paused AND last_api_interaction >= $1
		ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan active user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PauseInactiveSince pauses plans for users not seen since cutoff and reports how many changed
func (r *UserActivityRepository) PauseInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
		UPDATE user_activity
		SET weekly_plan_paused = true, updated_at = $2
		WHERE NOT weekly_plan_paused AND last_api_interaction < $1`

	res, err := r.db.ExecContext(ctx, q, cutoff.UTC(), r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to pause inactive users: %w", err)
	}
	return res.RowsAffected()
}

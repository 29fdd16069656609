package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/crux-journal/internal/models"
	"github.com/google/uuid"
)

// PreferencesRepository handles coaching preference database operations
type PreferencesRepository struct {
	db *DB
}

// NewPreferencesRepository creates a new coaching preferences repository
func NewPreferencesRepository(db *DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByUserID retrieves coaching preferences by user ID
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CoachingPreferences, error) {
	prefs := &models.CoachingPreferences{}
	var preferencesJSON []byte

	query := `
		SELECT id, user_id, context_summary, preferences, created_at, updated_at
		FROM coaching_preferences
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&prefs.ID,
		&prefs.UserID,
		&prefs.ContextSummary,
		&preferencesJSON,
		&prefs.CreatedAt,
		&prefs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("coaching preferences not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coaching preferences: %w", err)
	}

	if len(preferencesJSON) > 0 {
		if err := json.Unmarshal(preferencesJSON, &prefs.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}

	return prefs, nil
}

// Upsert creates or replaces a user's coaching preferences
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *models.CoachingPreferences) error {
	if prefs.ID == uuid.Nil {
		prefs.ID = uuid.New()
	}
	if prefs.Preferences == nil {
		prefs.Preferences = map[string]any{}
	}

	query := `
		INSERT INTO coaching_preferences (id, user_id, context_summary, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET context_summary = EXCLUDED.context_summary,
		    preferences = EXCLUDED.preferences,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	preferencesJSON, err := json.Marshal(prefs.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query,
		prefs.ID,
		prefs.UserID,
		prefs.ContextSummary,
		preferencesJSON,
		now,
		now,
	).Scan(&prefs.ID, &prefs.CreatedAt, &prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert coaching preferences: %w", err)
	}

	return nil
}

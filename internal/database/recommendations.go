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

// RecommendationRepository handles persisted weekly plans
type RecommendationRepository struct {
	db *DB
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create inserts a recommendation row. A nil Content stores an error row.
func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	var contentJSON []byte
	if rec.Content != nil {
		var err error
		contentJSON, err = json.Marshal(rec.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation content: %w", err)
		}
	}

	query := `
		INSERT INTO recommendations (id, user_id, content, is_cached, error_message, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.UserID,
		contentJSON,
		rec.IsCached,
		rec.ErrorMessage,
		rec.Model,
		now,
		now,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}

	return nil
}

// LatestValid returns the user's most recent row that carries content
func (r *RecommendationRepository) LatestValid(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	query := `
		SELECT id, user_id, content, is_cached, error_message, model, created_at, updated_at
		FROM recommendations
		WHERE user_id = $1 AND content IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	rec := &models.Recommendation{}
	var contentJSON []byte
	var errorMessage sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&contentJSON,
		&rec.IsCached,
		&errorMessage,
		&rec.Model,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest recommendation: %w", err)
	}

	if len(contentJSON) > 0 {
		rec.Content = &models.RecommendationContent{}
		if err := json.Unmarshal(contentJSON, rec.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendation content: %w", err)
		}
	}
	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}

	return rec, nil
}

// AnnotateError records why a newer plan could not replace this row.
// The stored is_cached flag is left alone; callers mark the copy they serve.
func (r *RecommendationRepository) AnnotateError(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE recommendations
		SET error_message = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to annotate recommendation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("recommendation not found: %w", ErrNotFound)
	}

	return nil
}

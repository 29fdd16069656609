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
	"github.com/lib/pq"
)

const climbColumns = `id, user_id, grade_scale, grade, discipline, location, style, outcome, awkwardness,
		failure_reasons, hold_color, notes, tag_sources, tags_extracted_at, redeemed_at, created_at, updated_at`

// ClimbRepository handles climb log database operations
type ClimbRepository struct {
	db *DB
}

// NewClimbRepository creates a new climb repository
func NewClimbRepository(db *DB) *ClimbRepository {
	return &ClimbRepository{db: db}
}

// Create inserts a new climb
func (r *ClimbRepository) Create(ctx context.Context, climb *models.Climb) error {
	if climb.ID == uuid.Nil {
		climb.ID = uuid.New()
	}
	climb.SetUserTags()

	tagSourcesJSON, err := json.Marshal(climb.TagSources)
	if err != nil {
		return fmt.Errorf("failed to marshal tag sources: %w", err)
	}

	query := `
		INSERT INTO climbs (id, user_id, grade_scale, grade, discipline, location, style, outcome, awkwardness,
			failure_reasons, hold_color, notes, tag_sources, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query,
		climb.ID,
		climb.UserID,
		climb.GradeScale,
		climb.Grade,
		climb.Discipline,
		climb.Location,
		pq.Array(stylesToStrings(climb.Style)),
		climb.Outcome,
		int(climb.Awkwardness),
		pq.Array(reasonsToStrings(climb.FailureReasons)),
		climb.HoldColor,
		climb.Notes,
		tagSourcesJSON,
		now,
		now,
	).Scan(&climb.CreatedAt, &climb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create climb: %w", err)
	}

	return nil
}

// GetByID retrieves a climb by ID
func (r *ClimbRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Climb, error) {
	query := `SELECT ` + climbColumns + ` FROM climbs WHERE id = $1`

	climb, err := scanClimb(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("climb not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get climb: %w", err)
	}
	return climb, nil
}

// ListRecentByUser returns a user's climbs, newest first, at most limit rows
func (r *ClimbRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Climb, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + climbColumns + `
		FROM climbs
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query climbs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	climbs := make([]models.Climb, 0)
	for rows.Next() {
		climb, err := scanClimb(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan climb: %w", err)
		}
		climbs = append(climbs, *climb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating climbs: %w", err)
	}

	return climbs, nil
}

// UpdateTags persists the climb's style, failure reasons, tag sources and extraction time
func (r *ClimbRepository) UpdateTags(ctx context.Context, climb *models.Climb) error {
	tagSourcesJSON, err := json.Marshal(climb.TagSources)
	if err != nil {
		return fmt.Errorf("failed to marshal tag sources: %w", err)
	}

	query := `
		UPDATE climbs
		SET style = $2, failure_reasons = $3, tag_sources = $4, tags_extracted_at = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		climb.ID,
		pq.Array(stylesToStrings(climb.Style)),
		pq.Array(reasonsToStrings(climb.FailureReasons)),
		tagSourcesJSON,
		nullTime(climb.TagsExtractedAt),
		time.Now().UTC(),
	).Scan(&climb.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("climb not found: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update climb tags: %w", err)
	}

	return nil
}

// MarkSent records a later send of a failed climb. Sent climbs are returned unchanged.
func (r *ClimbRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*models.Climb, error) {
	query := `
		UPDATE climbs
		SET outcome = 'Sent',
		    redeemed_at = CASE WHEN outcome = 'Fail' THEN $2 ELSE redeemed_at END,
		    updated_at = $2
		WHERE id = $1
		RETURNING ` + climbColumns

	climb, err := scanClimb(r.db.QueryRowContext(ctx, query, id, at.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("climb not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark climb sent: %w", err)
	}
	return climb, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClimb(row rowScanner) (*models.Climb, error) {
	climb := &models.Climb{}
	var (
		style          pq.StringArray
		failureReasons pq.StringArray
		awkwardness    int
		holdColor      sql.NullString
		tagSourcesJSON []byte
		extractedAt    sql.NullTime
		redeemedAt     sql.NullTime
	)

	err := row.Scan(
		&climb.ID,
		&climb.UserID,
		&climb.GradeScale,
		&climb.Grade,
		&climb.Discipline,
		&climb.Location,
		&style,
		&climb.Outcome,
		&awkwardness,
		&failureReasons,
		&holdColor,
		&climb.Notes,
		&tagSourcesJSON,
		&extractedAt,
		&redeemedAt,
		&climb.CreatedAt,
		&climb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	climb.Awkwardness = models.Awkwardness(awkwardness)
	climb.Style = make([]models.ClimbStyle, 0, len(style))
	for _, s := range style {
		climb.Style = append(climb.Style, models.ClimbStyle(s))
	}
	climb.FailureReasons = make([]models.FailureReason, 0, len(failureReasons))
	for _, fr := range failureReasons {
		climb.FailureReasons = append(climb.FailureReasons, models.FailureReason(fr))
	}
	if holdColor.Valid {
		climb.HoldColor = &holdColor.String
	}
	if len(tagSourcesJSON) > 0 {
		if err := json.Unmarshal(tagSourcesJSON, &climb.TagSources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tag sources: %w", err)
		}
	}
	if extractedAt.Valid {
		climb.TagsExtractedAt = &extractedAt.Time
	}
	if redeemedAt.Valid {
		climb.RedeemedAt = &redeemedAt.Time
	}

	return climb, nil
}

func stylesToStrings(styles []models.ClimbStyle) []string {
	out := make([]string, 0, len(styles))
	for _, s := range styles {
		out = append(out, string(s))
	}
	return out
}

func reasonsToStrings(reasons []models.FailureReason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, string(r))
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

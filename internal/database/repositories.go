package database

import (
	"context"
	"time"

	"github.com/benvon/crux-journal/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the user lookups services depend on
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ClimbRepositoryInterface defines the interface for climb repository operations
// This interface enables better testability by allowing mock implementations
type ClimbRepositoryInterface interface {
	Create(ctx context.Context, climb *models.Climb) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Climb, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Climb, error)
	UpdateTags(ctx context.Context, climb *models.Climb) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*models.Climb, error)
}

// RecommendationRepositoryInterface defines the interface for recommendation storage
type RecommendationRepositoryInterface interface {
	Create(ctx context.Context, rec *models.Recommendation) error
	LatestValid(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error)
	AnnotateError(ctx context.Context, id uuid.UUID, message string) error
}

// UsageRepositoryInterface defines the interface for usage accounting
type UsageRepositoryInterface interface {
	Create(ctx context.Context, rec *models.UsageRecord) error
	TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*UsageTotals, error)
}

// QuotaRepositoryInterface defines the interface for daily counters
type QuotaRepositoryInterface interface {
	TryIncrement(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, limit int, now time.Time) (int, bool, error)
	Get(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, now time.Time) (*models.QuotaCounter, error)
}

// ChatMessageRepositoryInterface defines the interface for conversation storage
type ChatMessageRepositoryInterface interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// PreferencesRepositoryInterface defines the interface for coaching preferences
type PreferencesRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CoachingPreferences, error)
	Upsert(ctx context.Context, prefs *models.CoachingPreferences) error
}

// UserActivityRepositoryInterface defines the interface for user activity repository operations
type UserActivityRepositoryInterface interface {
	UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error
	ActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
	PauseInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface           = (*UserRepository)(nil)
	_ ClimbRepositoryInterface          = (*ClimbRepository)(nil)
	_ RecommendationRepositoryInterface = (*RecommendationRepository)(nil)
	_ UsageRepositoryInterface          = (*UsageRepository)(nil)
	_ QuotaRepositoryInterface          = (*QuotaRepository)(nil)
	_ ChatMessageRepositoryInterface    = (*ChatMessageRepository)(nil)
	_ PreferencesRepositoryInterface    = (*PreferencesRepository)(nil)
	_ UserActivityRepositoryInterface   = (*UserActivityRepository)(nil)
)

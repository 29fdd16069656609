package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a climber authenticated through an OIDC provider.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CoachingPreferences is what the climber has told the coach about themselves.
// Preferences holds free-form keys such as goals or available days.
type CoachingPreferences struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	ContextSummary string         `json:"context_summary,omitempty"`
	Preferences    map[string]any `json:"preferences,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

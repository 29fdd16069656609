package models

import (
	"time"

	"github.com/google/uuid"
)

// Drill is a single training exercise in a weekly plan
type Drill struct {
	Name              string `json:"name" validate:"nonblank"`
	Description       string `json:"description" validate:"nonblank,min=20"`
	Sets              int    `json:"sets" validate:"min=1,max=10"`
	Reps              string `json:"reps" validate:"nonblank"`
	Rest              string `json:"rest" validate:"nonblank"`
	MeasurableOutcome string `json:"measurable_outcome" validate:"nonblank,min=10"`
}

// ProjectingFocus is a suggestion for what to project next
type ProjectingFocus struct {
	FocusArea     string `json:"focus_area" validate:"nonblank"`
	Description   string `json:"description" validate:"nonblank,min=20"`
	GradeGuidance string `json:"grade_guidance" validate:"nonblank"`
	Rationale     string `json:"rationale" validate:"nonblank,min=15"`
}

// RecommendationContent is the structured weekly plan returned by the model
type RecommendationContent struct {
	WeeklyFocus     string            `json:"weekly_focus" validate:"nonblank"`
	Drills          []Drill           `json:"drills" validate:"required,min=1,max=3,dive"`
	ProjectingFocus []ProjectingFocus `json:"projecting_focus" validate:"required,min=3,max=4,dive"`
}

// Recommendation is a persisted generation result. Content is nil on error rows.
type Recommendation struct {
	ID           uuid.UUID              `json:"id"`
	UserID       uuid.UUID              `json:"user_id"`
	Content      *RecommendationContent `json:"content,omitempty"`
	IsCached     bool                   `json:"is_cached"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	Model        string                 `json:"model,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Valid reports whether the row carries usable content
func (r *Recommendation) Valid() bool {
	return r != nil && r.Content != nil
}

// TagScore is an extracted tag with the model's confidence (0-100)
type TagScore[T ~string] struct {
	Name       T       `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TagExtractionResult is a validated tag extraction response
type TagExtractionResult struct {
	StyleTags      []TagScore[ClimbStyle]    `json:"style_tags"`
	FailureReasons []TagScore[FailureReason] `json:"failure_reasons"`
}

// UsageRecord is one generative call's token and cost accounting
type UsageRecord struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	Model            string    `json:"model"`
	Endpoint         string    `json:"endpoint"`
	Succeeded        bool      `json:"succeeded"`
	CreatedAt        time.Time `json:"created_at"`
}

// QuotaKind names a per-user daily counter
type QuotaKind string

const (
	QuotaRecommendation QuotaKind = "recommendation"
	QuotaChat           QuotaKind = "chat"
	QuotaTagExtraction  QuotaKind = "tag_extraction"
)

// QuotaKinds lists every counter in display order
var QuotaKinds = []QuotaKind{QuotaRecommendation, QuotaChat, QuotaTagExtraction}

// ParseQuotaKind returns the kind named s
func ParseQuotaKind(s string) (QuotaKind, bool) {
	for _, k := range QuotaKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// QuotaCounter is a user's daily usage of one kind of generative call
type QuotaCounter struct {
	UserID    uuid.UUID `json:"user_id"`
	Kind      QuotaKind `json:"kind"`
	Count     int       `json:"count"`
	LimitDate time.Time `json:"limit_date"` // UTC date the count applies to
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatRole is the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a persisted coach conversation turn
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

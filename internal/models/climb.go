package models

import (
	"time"

	"github.com/google/uuid"
)

// Discipline is the type of climbing a log entry records
type Discipline string

const (
	DisciplineBouldering Discipline = "bouldering"
	DisciplineSport      Discipline = "sport"
	DisciplineTrad       Discipline = "trad"
	DisciplineTopRope    Discipline = "top_rope"
)

// Outcome is the result of an attempt
type Outcome string

const (
	OutcomeSent Outcome = "Sent"
	OutcomeFail Outcome = "Fail"
)

// TagSource represents where a style or failure tag came from (user or AI)
type TagSource string

const (
	TagSourceUser TagSource = "user"
	TagSourceAI   TagSource = "ai"
)

// Climb is a single logged attempt
type Climb struct {
	ID              uuid.UUID            `json:"id"`
	UserID          uuid.UUID            `json:"user_id"`
	GradeScale      string               `json:"grade_scale"`
	Grade           string               `json:"grade"`
	Discipline      Discipline           `json:"discipline"`
	Location        string               `json:"location"`
	Style           []ClimbStyle         `json:"style"`
	Outcome         Outcome              `json:"outcome"`
	Awkwardness     Awkwardness          `json:"awkwardness"`
	FailureReasons  []FailureReason      `json:"failure_reasons"`
	HoldColor       *string              `json:"hold_color,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	TagSources      map[string]TagSource `json:"tag_sources,omitempty"`
	TagsExtractedAt *time.Time           `json:"tags_extracted_at,omitempty"`
	RedeemedAt      *time.Time           `json:"redeemed_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// IsSent reports whether the attempt was a send
func (c *Climb) IsSent() bool {
	return c.Outcome == OutcomeSent
}

// IsRedeemed reports whether a previously failed climb was later sent
func (c *Climb) IsRedeemed() bool {
	return c.RedeemedAt != nil
}

// MergeExtractedTags adds AI-extracted tags to the climb as a set union.
// Existing tags are never removed and keep their original source.
// Returns the number of tags that were not already present.
func (c *Climb) MergeExtractedTags(styles []ClimbStyle, reasons []FailureReason) int {
	if c.TagSources == nil {
		c.TagSources = make(map[string]TagSource)
	}

	added := 0
	for _, s := range styles {
		if !containsStyle(c.Style, s) {
			c.Style = append(c.Style, s)
			c.TagSources[string(s)] = TagSourceAI
			added++
		}
	}
	for _, r := range reasons {
		if !containsReason(c.FailureReasons, r) {
			c.FailureReasons = append(c.FailureReasons, r)
			c.TagSources[string(r)] = TagSourceAI
			added++
		}
	}
	return added
}

// SetUserTags marks every current tag that has no recorded source as user-defined
func (c *Climb) SetUserTags() {
	if c.TagSources == nil {
		c.TagSources = make(map[string]TagSource)
	}
	for _, s := range c.Style {
		if _, ok := c.TagSources[string(s)]; !ok {
			c.TagSources[string(s)] = TagSourceUser
		}
	}
	for _, r := range c.FailureReasons {
		if _, ok := c.TagSources[string(r)]; !ok {
			c.TagSources[string(r)] = TagSourceUser
		}
	}
}

func containsStyle(slice []ClimbStyle, item ClimbStyle) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsReason(slice []FailureReason, item FailureReason) bool {
	for _, r := range slice {
		if r == item {
			return true
		}
	}
	return false
}

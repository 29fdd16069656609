package models

import (
	"time"

	"github.com/google/uuid"
)

// FailurePattern is a failure reason and how often it appears among failed climbs
type FailurePattern struct {
	Reason     FailureReason `json:"reason"`
	Count      int           `json:"count"`
	Percentage int           `json:"percentage"`
}

// StyleWeakness is a style with a high failure rate
type StyleWeakness struct {
	Style         ClimbStyle `json:"style"`
	FailRate      float64    `json:"fail_rate"`
	FailCount     int        `json:"fail_count"`
	TotalAttempts int        `json:"total_attempts"`
}

// WeeklyCount is the number of climbs logged in one ISO week
type WeeklyCount struct {
	Week  string `json:"week"` // e.g. 2026-W07
	Count int    `json:"count"`
}

// ClimbingFrequency summarizes how often the user climbs
type ClimbingFrequency struct {
	WeeklyCounts        []WeeklyCount `json:"weekly_counts"`
	AvgPerMonth         int           `json:"avg_per_month"`
	AvgClimbsPerSession int           `json:"avg_climbs_per_session"`
}

// SendSummary is a sent climb as reported in an analysis
type SendSummary struct {
	ID              uuid.UUID  `json:"id"`
	GradeScale      string     `json:"grade_scale"`
	Grade           string     `json:"grade"`
	NormalizedGrade int        `json:"normalized_grade"`
	Discipline      Discipline `json:"discipline"`
	CreatedAt       time.Time  `json:"created_at"`
}

// RecentSuccesses summarizes sends in the analyzed window
type RecentSuccesses struct {
	RecentSends     []SendSummary `json:"recent_sends"`
	HardestSends    []SendSummary `json:"hardest_sends"`
	MaxGrade        int           `json:"max_grade"`
	RedemptionCount int           `json:"redemption_count"`
}

// PatternAnalysis is derived from a user's most recent climbs and never persisted
type PatternAnalysis struct {
	FailurePatterns   []FailurePattern  `json:"failure_patterns"`
	StyleWeaknesses   []StyleWeakness   `json:"style_weaknesses"`
	ClimbingFrequency ClimbingFrequency `json:"climbing_frequency"`
	RecentSuccesses   RecentSuccesses   `json:"recent_successes"`
	ClimbsAnalyzed    int               `json:"climbs_analyzed"`
}

// DifficultyBucket is a coarse difficulty band over normalized grades
type DifficultyBucket string

const (
	BucketUnknown      DifficultyBucket = "Unknown"
	BucketBeginner     DifficultyBucket = "Beginner"
	BucketIntermediate DifficultyBucket = "Intermediate"
	BucketAdvanced     DifficultyBucket = "Advanced"
	BucketElite        DifficultyBucket = "Elite"
)

// BucketCount is one bar of the grade distribution chart
type BucketCount struct {
	Bucket DifficultyBucket `json:"bucket"`
	Sent   int              `json:"sent"`
	Failed int              `json:"failed"`
}

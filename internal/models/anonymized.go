package models

// LocationToken is the generic replacement for a real place name
type LocationToken string

const (
	LocationIndoorGym    LocationToken = "indoor_gym"
	LocationOutdoorCrags LocationToken = "outdoor_crags"
	LocationGeneric      LocationToken = "climbing_location"
)

// AnonymizedClimb is the projection of a Climb that may be sent to an external model.
// It carries no identifiers, free text, or timestamps.
type AnonymizedClimb struct {
	GradeScale     string          `json:"grade_scale"`
	Grade          string          `json:"grade"`
	Discipline     Discipline      `json:"discipline"`
	Location       LocationToken   `json:"location"`
	Style          []ClimbStyle    `json:"style"`
	Outcome        Outcome         `json:"outcome"`
	Awkwardness    Awkwardness     `json:"awkwardness"`
	FailureReasons []FailureReason `json:"failure_reasons"`
	HoldColor      *string         `json:"hold_color,omitempty"`
	Redeemed       bool            `json:"redeemed"`
}

// AnonymizedSend is a send summary without its climb ID or timestamp
type AnonymizedSend struct {
	GradeScale      string     `json:"grade_scale"`
	Grade           string     `json:"grade"`
	NormalizedGrade int        `json:"normalized_grade"`
	Discipline      Discipline `json:"discipline"`
}

// AnonymizedSuccesses mirrors RecentSuccesses with anonymized sends
type AnonymizedSuccesses struct {
	RecentSends     []AnonymizedSend `json:"recent_sends"`
	HardestSends    []AnonymizedSend `json:"hardest_sends"`
	MaxGrade        int              `json:"max_grade"`
	RedemptionCount int              `json:"redemption_count"`
}

// AnonymizedAnalysis is the form of a PatternAnalysis that may be sent to an external model
type AnonymizedAnalysis struct {
	FailurePatterns   []FailurePattern    `json:"failure_patterns"`
	StyleWeaknesses   []StyleWeakness     `json:"style_weaknesses"`
	ClimbingFrequency ClimbingFrequency   `json:"climbing_frequency"`
	RecentSuccesses   AnonymizedSuccesses `json:"recent_successes"`
	ClimbsAnalyzed    int                 `json:"climbs_analyzed"`
}

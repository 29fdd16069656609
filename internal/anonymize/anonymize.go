// Package anonymize strips identifying information from climb data before it
// leaves the service for an external model.
package anonymize

import (
	"strings"

	"github.com/benvon/crux-journal/internal/models"
)

var indoorKeywords = []string{"gym", "climbing wall", "studio", "center", "facility"}

var outdoorKeywords = []string{"crag", "boulder", "cliff", "wall", "gorge"}

// Anonymizer redacts notes with an ordered pattern list
type Anonymizer struct {
	patterns []Pattern
}

// New creates an Anonymizer with the default patterns
func New() *Anonymizer {
	return &Anonymizer{patterns: DefaultPatterns()}
}

// NewWithPatterns creates an Anonymizer with custom patterns
func NewWithPatterns(patterns []Pattern) *Anonymizer {
	return &Anonymizer{patterns: patterns}
}

// Notes applies each pattern in order and returns the redacted text
func (a *Anonymizer) Notes(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, p := range a.patterns {
		result = p.Regex.ReplaceAllString(result, p.Replacement)
	}
	return result
}

// Climbs projects climbs into their anonymized form
func (a *Anonymizer) Climbs(climbs []models.Climb) []models.AnonymizedClimb {
	out := make([]models.AnonymizedClimb, 0, len(climbs))
	for i := range climbs {
		out = append(out, Climb(&climbs[i]))
	}
	return out
}

// Climb projects a single climb. Identifiers, notes and timestamps are dropped.
func Climb(c *models.Climb) models.AnonymizedClimb {
	styles := make([]models.ClimbStyle, len(c.Style))
	copy(styles, c.Style)
	reasons := make([]models.FailureReason, len(c.FailureReasons))
	copy(reasons, c.FailureReasons)

	var holdColor *string
	if c.HoldColor != nil {
		hc := *c.HoldColor
		holdColor = &hc
	}

	return models.AnonymizedClimb{
		GradeScale:     c.GradeScale,
		Grade:          c.Grade,
		Discipline:     c.Discipline,
		Location:       SanitizeLocation(c.Location),
		Style:          styles,
		Outcome:        c.Outcome,
		Awkwardness:    c.Awkwardness,
		FailureReasons: reasons,
		HoldColor:      holdColor,
		Redeemed:       c.IsRedeemed(),
	}
}

// Analysis projects a pattern analysis for a prompt. Send summaries lose their climb IDs and timestamps.
func Analysis(a models.PatternAnalysis) models.AnonymizedAnalysis {
	return models.AnonymizedAnalysis{
		FailurePatterns:   a.FailurePatterns,
		StyleWeaknesses:   a.StyleWeaknesses,
		ClimbingFrequency: a.ClimbingFrequency,
		RecentSuccesses: models.AnonymizedSuccesses{
			RecentSends:     sends(a.RecentSuccesses.RecentSends),
			HardestSends:    sends(a.RecentSuccesses.HardestSends),
			MaxGrade:        a.RecentSuccesses.MaxGrade,
			RedemptionCount: a.RecentSuccesses.RedemptionCount,
		},
		ClimbsAnalyzed: a.ClimbsAnalyzed,
	}
}

func sends(in []models.SendSummary) []models.AnonymizedSend {
	out := make([]models.AnonymizedSend, 0, len(in))
	for _, s := range in {
		out = append(out, models.AnonymizedSend{
			GradeScale:      s.GradeScale,
			Grade:           s.Grade,
			NormalizedGrade: s.NormalizedGrade,
			Discipline:      s.Discipline,
		})
	}
	return out
}

// SanitizeLocation replaces a location with a generic token.
// Indoor keywords are checked before outdoor ones.
func SanitizeLocation(location string) models.LocationToken {
	lower := strings.ToLower(location)
	for _, kw := range indoorKeywords {
		if strings.Contains(lower, kw) {
			return models.LocationIndoorGym
		}
	}
	for _, kw := range outdoorKeywords {
		if strings.Contains(lower, kw) {
			return models.LocationOutdoorCrags
		}
	}
	return models.LocationGeneric
}

// Default is a package-level anonymizer for convenience
var Default = New()

// Notes redacts text with the default anonymizer
func Notes(text string) string {
	return Default.Notes(text)
}

// Climbs projects climbs with the default anonymizer
func Climbs(climbs []models.Climb) []models.AnonymizedClimb {
	return Default.Climbs(climbs)
}

// Package grades maps grade strings from the supported grading systems onto a
// common 0-100 difficulty scale so climbs logged in different systems can be compared.
package grades

import (
	"math"
	"strings"

	"github.com/benvon/crux-journal/internal/models"
)

// Scale identifies a grading system
type Scale string

const (
	ScaleV      Scale = "v_scale"
	ScaleYDS    Scale = "yds"
	ScaleFrench Scale = "french"
)

// Unknown is the normalized value for an unrecognized scale or grade
const Unknown = 0

var vocabularies = map[Scale][]string{
	ScaleV: {
		"VB", "V0", "V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8",
		"V9", "V10", "V11", "V12", "V13", "V14", "V15", "V16", "V17",
	},
	ScaleYDS: {
		"5.5", "5.6", "5.7", "5.8", "5.9",
		"5.10a", "5.10b", "5.10c", "5.10d",
		"5.11a", "5.11b", "5.11c", "5.11d",
		"5.12a", "5.12b", "5.12c", "5.12d",
		"5.13a", "5.13b", "5.13c", "5.13d",
		"5.14a", "5.14b", "5.14c", "5.14d",
		"5.15a", "5.15b", "5.15c", "5.15d",
	},
	ScaleFrench: {
		"4a", "4b", "4c", "5a", "5b", "5c",
		"6a", "6a+", "6b", "6b+", "6c", "6c+",
		"7a", "7a+", "7b", "7b+", "7c", "7c+",
		"8a", "8a+", "8b", "8b+", "8c", "8c+",
		"9a", "9a+", "9b", "9b+", "9c",
	},
}

// positions maps scale -> lowercased grade -> 1-based position
var positions = func() map[Scale]map[string]int {
	out := make(map[Scale]map[string]int, len(vocabularies))
	for scale, grades := range vocabularies {
		idx := make(map[string]int, len(grades))
		for i, g := range grades {
			idx[strings.ToLower(g)] = i + 1
		}
		out[scale] = idx
	}
	return out
}()

// Scales returns the supported scales
func Scales() []Scale {
	return []Scale{ScaleV, ScaleYDS, ScaleFrench}
}

// Grades returns a copy of the ordered vocabulary for a scale, easiest first.
// Returns nil for an unknown scale.
func Grades(scale Scale) []string {
	grades, ok := vocabularies[scale]
	if !ok {
		return nil
	}
	out := make([]string, len(grades))
	copy(out, grades)
	return out
}

// ValidGrade reports whether raw is a grade in the given scale
func ValidGrade(scale Scale, raw string) bool {
	return position(scale, raw) > 0
}

// Normalize returns the grade's difficulty on a 0-100 scale.
// The hardest grade of each scale maps to 100; unknown scales or grades map to 0.
func Normalize(scale Scale, raw string) int {
	p := position(scale, raw)
	if p == 0 {
		return Unknown
	}
	return int(math.Round(float64(p) / float64(len(vocabularies[scale])) * 100))
}

// NormalizeClimb normalizes a climb's grade using its own scale
func NormalizeClimb(c *models.Climb) int {
	return Normalize(Scale(c.GradeScale), c.Grade)
}

// Bucket places a normalized grade into a difficulty band
func Bucket(normalized int) models.DifficultyBucket {
	switch {
	case normalized <= 0:
		return models.BucketUnknown
	case normalized <= 25:
		return models.BucketBeginner
	case normalized <= 50:
		return models.BucketIntermediate
	case normalized <= 75:
		return models.BucketAdvanced
	default:
		return models.BucketElite
	}
}

// Distribution counts sends and failures per difficulty bucket, in band order
func Distribution(climbs []models.Climb) []models.BucketCount {
	order := []models.DifficultyBucket{
		models.BucketUnknown,
		models.BucketBeginner,
		models.BucketIntermediate,
		models.BucketAdvanced,
		models.BucketElite,
	}
	counts := make(map[models.DifficultyBucket]*models.BucketCount, len(order))
	out := make([]models.BucketCount, len(order))
	for i, b := range order {
		out[i].Bucket = b
		counts[b] = &out[i]
	}

	for i := range climbs {
		bc := counts[Bucket(NormalizeClimb(&climbs[i]))]
		if climbs[i].IsSent() {
			bc.Sent++
		} else {
			bc.Failed++
		}
	}
	return out
}

func position(scale Scale, raw string) int {
	idx, ok := positions[scale]
	if !ok {
		return 0
	}
	return idx[strings.ToLower(strings.TrimSpace(raw))]
}

// Package patterns derives failure, style, frequency and success statistics from
// a user's recent climbs. Results are computed on demand and never stored.
package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/benvon/crux-journal/internal/grades"
	"github.com/benvon/crux-journal/internal/models"
)

const (
	// WindowSize is how many of the most recent climbs callers should load
	WindowSize = 100

	maxFailurePatterns = 5
	maxStyleWeaknesses = 5
	minStyleAttempts   = 3
	maxWeeks           = 12
	maxRecentSends     = 10
	maxHardestSends    = 5
)

// Extract analyzes climbs ordered newest first. The input is not re-sorted.
func Extract(recent []models.Climb) models.PatternAnalysis {
	return models.PatternAnalysis{
		FailurePatterns:   FailurePatterns(recent),
		StyleWeaknesses:   StyleWeaknesses(recent),
		ClimbingFrequency: Frequency(recent),
		RecentSuccesses:   RecentSuccesses(recent),
		ClimbsAnalyzed:    len(recent),
	}
}

// counter tallies keys while remembering the order they were first seen in
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// FailurePatterns returns the most common failure reasons among failed climbs.
// Percentages are relative to the number of failed climbs.
func FailurePatterns(climbs []models.Climb) []models.FailurePattern {
	tally := newCounter()
	failed := 0
	for i := range climbs {
		if climbs[i].Outcome != models.OutcomeFail {
			continue
		}
		failed++
		seen := make(map[models.FailureReason]bool, len(climbs[i].FailureReasons))
		for _, r := range climbs[i].FailureReasons {
			if seen[r] {
				continue
			}
			seen[r] = true
			tally.add(string(r))
		}
	}

	out := make([]models.FailurePattern, 0, len(tally.order))
	if failed == 0 {
		return out
	}
	for _, reason := range tally.order {
		count := tally.counts[reason]
		out = append(out, models.FailurePattern{
			Reason:     models.FailureReason(reason),
			Count:      count,
			Percentage: roundInt(float64(count) / float64(failed) * 100),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > maxFailurePatterns {
		out = out[:maxFailurePatterns]
	}
	return out
}

// StyleWeaknesses returns styles with at least three attempts, ordered by fail rate
func StyleWeaknesses(climbs []models.Climb) []models.StyleWeakness {
	total := newCounter()
	fails := make(map[string]int)
	for i := range climbs {
		seen := make(map[models.ClimbStyle]bool, len(climbs[i].Style))
		for _, s := range climbs[i].Style {
			if seen[s] {
				continue
			}
			seen[s] = true
			total.add(string(s))
			if climbs[i].Outcome == models.OutcomeFail {
				fails[string(s)]++
			}
		}
	}

	out := make([]models.StyleWeakness, 0, len(total.order))
	for _, style := range total.order {
		attempts := total.counts[style]
		if attempts < minStyleAttempts {
			continue
		}
		out = append(out, models.StyleWeakness{
			Style:         models.ClimbStyle(style),
			FailRate:      float64(fails[style]) / float64(attempts),
			FailCount:     fails[style],
			TotalAttempts: attempts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FailRate > out[j].FailRate
	})
	if len(out) > maxStyleWeaknesses {
		out = out[:maxStyleWeaknesses]
	}
	return out
}

// Frequency buckets climbs by ISO week and derives monthly and per-session averages.
// Days are UTC calendar days.
func Frequency(climbs []models.Climb) models.ClimbingFrequency {
	freq := models.ClimbingFrequency{WeeklyCounts: make([]models.WeeklyCount, 0)}
	if len(climbs) == 0 {
		return freq
	}

	weeks := newCounter()
	days := make(map[time.Time]struct{})
	oldest, newest := utcDay(climbs[0].CreatedAt), utcDay(climbs[0].CreatedAt)
	for i := range climbs {
		created := climbs[i].CreatedAt.UTC()
		year, week := created.ISOWeek()
		weeks.add(fmt.Sprintf("%04d-W%02d", year, week))

		day := utcDay(created)
		days[day] = struct{}{}
		if day.Before(oldest) {
			oldest = day
		}
		if day.After(newest) {
			newest = day
		}
	}

	// Input is newest first so the first keys seen are the latest weeks
	latest := weeks.order
	if len(latest) > maxWeeks {
		latest = latest[:maxWeeks]
	}
	sorted := make([]string, len(latest))
	copy(sorted, latest)
	sort.Strings(sorted)
	for _, w := range sorted {
		freq.WeeklyCounts = append(freq.WeeklyCounts, models.WeeklyCount{Week: w, Count: weeks.counts[w]})
	}

	total := float64(len(climbs))
	daysSpanned := int(newest.Sub(oldest).Hours() / 24)
	if daysSpanned > 0 {
		freq.AvgPerMonth = roundInt(total / float64(daysSpanned) * 30)
	}
	freq.AvgClimbsPerSession = roundInt(total / float64(len(days)))
	return freq
}

// RecentSuccesses summarizes sends. The hardest list holds up to five sends tied at
// the maximum normalized grade; it is empty when no send has a recognized grade.
func RecentSuccesses(climbs []models.Climb) models.RecentSuccesses {
	out := models.RecentSuccesses{
		RecentSends:  make([]models.SendSummary, 0),
		HardestSends: make([]models.SendSummary, 0),
	}

	sends := make([]models.SendSummary, 0)
	for i := range climbs {
		if climbs[i].IsRedeemed() {
			out.RedemptionCount++
		}
		if !climbs[i].IsSent() {
			continue
		}
		s := summarize(&climbs[i])
		sends = append(sends, s)
		if s.NormalizedGrade > out.MaxGrade {
			out.MaxGrade = s.NormalizedGrade
		}
	}

	if len(sends) > maxRecentSends {
		out.RecentSends = append(out.RecentSends, sends[:maxRecentSends]...)
	} else {
		out.RecentSends = append(out.RecentSends, sends...)
	}

	if out.MaxGrade == grades.Unknown {
		return out
	}
	for _, s := range sends {
		if len(out.HardestSends) == maxHardestSends {
			break
		}
		if s.NormalizedGrade == out.MaxGrade {
			out.HardestSends = append(out.HardestSends, s)
		}
	}
	return out
}

func summarize(c *models.Climb) models.SendSummary {
	return models.SendSummary{
		ID:              c.ID,
		GradeScale:      c.GradeScale,
		Grade:           c.Grade,
		NormalizedGrade: grades.NormalizeClimb(c),
		Discipline:      c.Discipline,
		CreatedAt:       c.CreatedAt,
	}
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

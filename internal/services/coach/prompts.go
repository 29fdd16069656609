package coach

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/benvon/crux-journal/internal/models"
)

const recommendationSystemPrompt = `You are an experienced climbing coach writing a one-week training plan.
Base every suggestion on the climber's logged attempts and the pattern summary you are given.
Return a JSON object with exactly these fields:
{
  "weekly_focus": "one sentence naming the main theme for the week",
  "drills": [
    {
      "name": "short drill name",
      "description": "how to do the drill, at least 20 characters",
      "sets": 3,
      "reps": "e.g. 5 problems or 30 seconds",
      "rest": "e.g. 2 minutes",
      "measurable_outcome": "how the climber knows it worked, at least 10 characters"
    }
  ],
  "projecting_focus": [
    {
      "focus_area": "style or skill to project",
      "description": "what to look for in a project, at least 20 characters",
      "grade_guidance": "grade range relative to the climber's max",
      "rationale": "why this helps, at least 15 characters"
    }
  ]
}
Rules: 1 to 3 drills; 3 or 4 projecting_focus entries; sets is an integer from 1 to 10.`

const tagExtractionSystemPrompt = `You tag climbing log notes.
Pick styles only from: %s.
Pick failure reasons only from: %s.
Return a JSON object:
{"style_tags": [{"name": "<style>", "confidence": 0-100}], "failure_reasons": [{"name": "<reason>", "confidence": 0-100}]}
Return at most 3 style tags and between 1 and 3 failure reasons. Use the names exactly as listed.`

const chatSystemPrompt = `You are a friendly, practical climbing coach chatting with a climber.
Keep answers short and specific. Ground advice in the climber's recent pattern summary below when it is relevant.
Never ask for or repeat personal details such as names, gyms or contact information.`

// recommendationInput is everything the plan prompt is built from
type recommendationInput struct {
	Climbs      []models.AnonymizedClimb  `json:"climbs"`
	Analysis    models.AnonymizedAnalysis `json:"analysis"`
	Preferences string                    `json:"preferences,omitempty"`
}

func buildRecommendationPrompt(in recommendationInput) (string, error) {
	analysisJSON, err := json.Marshal(in.Analysis)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}
	climbsJSON, err := json.Marshal(in.Climbs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal climbs: %w", err)
	}

	var b strings.Builder
	b.WriteString("Write next week's training plan for this climber.\n\n")
	fmt.Fprintf(&b, "Pattern summary (%d climbs analyzed):\n%s\n\n", in.Analysis.ClimbsAnalyzed, analysisJSON)
	fmt.Fprintf(&b, "Recent climbs, newest first:\n%s\n", climbsJSON)
	if in.Preferences != "" {
		fmt.Fprintf(&b, "\nWhat the climber has told you about their goals:\n%s\n", in.Preferences)
	}
	return b.String(), nil
}

func buildTagExtractionSystemPrompt() string {
	styles := make([]string, 0, len(models.AllClimbStyles()))
	for _, s := range models.AllClimbStyles() {
		styles = append(styles, string(s))
	}
	reasons := make([]string, 0, len(models.AllFailureReasons()))
	for _, r := range models.AllFailureReasons() {
		reasons = append(reasons, string(r))
	}
	return fmt.Sprintf(tagExtractionSystemPrompt, strings.Join(styles, ", "), strings.Join(reasons, ", "))
}

func buildTagExtractionPrompt(climb *models.Climb, notes string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discipline: %s\nGrade: %s (%s)\nOutcome: %s\n", climb.Discipline, climb.Grade, climb.GradeScale, climb.Outcome)
	fmt.Fprintf(&b, "Notes:\n%s", notes)
	return b.String()
}

func buildChatSystemPrompt(analysis models.AnonymizedAnalysis, preferences string) (string, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}

	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	fmt.Fprintf(&b, "\n\nPattern summary:\n%s", analysisJSON)
	if preferences != "" {
		fmt.Fprintf(&b, "\n\nClimber's stated goals:\n%s", preferences)
	}
	return b.String(), nil
}

// preferenceSummary flattens stored preferences into anonymized prompt text
func preferenceSummary(prefs *models.CoachingPreferences, anonymizeText func(string) string) string {
	if prefs == nil {
		return ""
	}

	var parts []string
	if s := strings.TrimSpace(prefs.ContextSummary); s != "" {
		parts = append(parts, s)
	}
	if len(prefs.Preferences) > 0 {
		if raw, err := json.Marshal(prefs.Preferences); err == nil {
			parts = append(parts, string(raw))
		}
	}
	return anonymizeText(strings.Join(parts, "\n"))
}

// truncateToTokenBudget keeps a proportional prefix of text that fits in budget tokens
func truncateToTokenBudget(text string, budget int, estimate func(string) int) string {
	tokens := estimate(text)
	if budget <= 0 || tokens <= budget {
		return text
	}

	runes := []rune(text)
	keep := len(runes) * budget / tokens
	if keep >= len(runes) {
		return text
	}
	return string(runes[:keep])
}

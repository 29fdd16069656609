package anonymize

import (
	"regexp"
	"strings"

	"github.com/benvon/crux-journal/internal/models"
)

// Pattern is a named redaction rule applied to free-text notes
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Redaction placeholders
const (
	PlaceholderEmail = "[EMAIL]"
	PlaceholderPhone = "[PHONE]"
	PlaceholderSSN   = "[SSN]"
	PlaceholderURL   = "[URL]"
	PlaceholderIP    = "[IP]"
)

// KnownGyms are gym names replaced with the indoor token
var KnownGyms = []string{
	"Brooklyn Boulders",
	"Planet Granite",
	"Touchstone Climbing",
	"Bouldering Project",
	"Mesa Rim",
	"Earth Treks",
	"Movement Climbing",
	"Central Rock Gym",
	"Momentum Indoor Climbing",
	"Vital Climbing",
}

// KnownCrags are outdoor area names replaced with the outdoor token
var KnownCrags = []string{
	"Red River Gorge",
	"New River Gorge",
	"Yosemite",
	"Joshua Tree",
	"Smith Rock",
	"Hueco Tanks",
	"Indian Creek",
	"Fontainebleau",
	"Squamish",
	"Rumney",
	"Bishop",
	"Rifle",
	"Horse Pens 40",
	"Castle Hill",
}

// piiPatterns run after place-name substitution, in this order
var piiPatterns = []Pattern{
	{
		Name:        "email",
		Regex:       regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		Replacement: PlaceholderEmail,
	},
	{
		Name:        "phone",
		Regex:       regexp.MustCompile(`(?:\+?\d{1,2}[\s.\-]?)?(?:\(\d{3}\)|\b\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}\b`),
		Replacement: PlaceholderPhone,
	},
	{
		Name:        "ssn",
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: PlaceholderSSN,
	},
	{
		Name:        "url",
		Regex:       regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s]+`),
		Replacement: PlaceholderURL,
	},
	{
		Name:        "ipv4",
		Regex:       regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`),
		Replacement: PlaceholderIP,
	},
}

// DefaultPatterns returns the full ordered redaction list: gym names, crag names,
// then email, phone, SSN, URL and IPv4.
func DefaultPatterns() []Pattern {
	patterns := make([]Pattern, 0, len(KnownGyms)+len(KnownCrags)+len(piiPatterns))
	for _, name := range KnownGyms {
		patterns = append(patterns, namePattern(name, models.LocationIndoorGym))
	}
	for _, name := range KnownCrags {
		patterns = append(patterns, namePattern(name, models.LocationOutdoorCrags))
	}
	return append(patterns, piiPatterns...)
}

func namePattern(name string, token models.LocationToken) Pattern {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return Pattern{
		Name:        "place:" + strings.ToLower(name),
		Regex:       regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`),
		Replacement: string(token),
	}
}

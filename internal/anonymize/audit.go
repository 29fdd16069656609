package anonymize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Finding is a value that looks like it may still identify a person or place
type Finding struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

const maxNameLength = 20

var (
	auditEmail     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	auditDigitRun  = regexp.MustCompile(`\d{10,}`)
	auditUUID      = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	auditPlaceName = regexp.MustCompile(`^[A-Z][\p{L}'.\-]*(?:\s+[A-Z][\p{L}'.\-]*){2,}$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// ValidateAnonymizedData walks v and reports values that look like leftover PII.
// Structs are inspected through their JSON form. An empty result means nothing was flagged;
// it is an audit, not a guarantee.
func ValidateAnonymizedData(v any) []Finding {
	generic, err := toGeneric(v)
	if err != nil {
		return []Finding{{Path: "$", Reason: fmt.Sprintf("not inspectable: %v", err)}}
	}

	findings := make([]Finding, 0)
	walk("$", "", generic, &findings)
	return findings
}

func toGeneric(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, string, nil:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(path, key string, v any, findings *[]Finding) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(path+"."+k, k, val[k], findings)
		}
	case []any:
		for i, item := range val {
			walk(fmt.Sprintf("%s[%d]", path, i), key, item, findings)
		}
	case string:
		if reason := inspect(path, key, val); reason != "" {
			*findings = append(*findings, Finding{Path: path, Reason: reason})
		}
	}
}

func inspect(path, key, value string) string {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "name") && len(value) > maxNameLength:
		return "long value in name field"
	case strings.Contains(k, "email") && auditEmail.MatchString(value):
		return "email address"
	case strings.Contains(k, "phone") && auditDigitRun.MatchString(phoneSeparator.Replace(value)):
		return "phone number"
	case strings.Contains(k, "user") && auditUUID.MatchString(value):
		return "user identifier"
	case strings.Contains(strings.ToLower(path), "location") && auditPlaceName.MatchString(strings.TrimSpace(value)):
		return "specific place name"
	}
	return ""
}

package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/crux-journal/internal/models"
)

// ContractError reports the first field of a model response that broke the contract
type ContractError struct {
	Field      string
	Constraint string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Constraint)
}

// StripCodeFence removes a surrounding markdown code fence, if present
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, which may carry a language hint
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseRecommendationContent decodes and validates a weekly plan. It never repairs
// or partially accepts content.
func ParseRecommendationContent(raw string) (*models.RecommendationContent, error) {
	var content models.RecommendationContent
	if err := decodeObject(raw, &content); err != nil {
		return nil, err
	}
	if err := Validate.Struct(&content); err != nil {
		return nil, contractError(err)
	}
	return &content, nil
}

type rawStyleScore struct {
	Name       models.ClimbStyle `json:"name" validate:"climb_style"`
	Confidence *float64          `json:"confidence" validate:"required,min=0,max=100"`
}

type rawReasonScore struct {
	Name       models.FailureReason `json:"name" validate:"failure_reason"`
	Confidence *float64             `json:"confidence" validate:"required,min=0,max=100"`
}

type rawTagExtraction struct {
	StyleTags      []rawStyleScore  `json:"style_tags" validate:"max=3,dive"`
	FailureReasons []rawReasonScore `json:"failure_reasons" validate:"required,min=1,max=3,dive"`
}

// ParseTagExtraction decodes and validates a tag extraction response
func ParseTagExtraction(raw string) (*models.TagExtractionResult, error) {
	var parsed rawTagExtraction
	if err := decodeObject(raw, &parsed); err != nil {
		return nil, err
	}
	if err := Validate.Struct(&parsed); err != nil {
		return nil, contractError(err)
	}

	result := &models.TagExtractionResult{
		StyleTags:      make([]models.TagScore[models.ClimbStyle], 0, len(parsed.StyleTags)),
		FailureReasons: make([]models.TagScore[models.FailureReason], 0, len(parsed.FailureReasons)),
	}
	for _, s := range parsed.StyleTags {
		result.StyleTags = append(result.StyleTags, models.TagScore[models.ClimbStyle]{Name: s.Name, Confidence: *s.Confidence})
	}
	for _, r := range parsed.FailureReasons {
		result.FailureReasons = append(result.FailureReasons, models.TagScore[models.FailureReason]{Name: r.Name, Confidence: *r.Confidence})
	}
	return result, nil
}

func decodeObject(raw string, v any) error {
	body := StripCodeFence(raw)
	if body == "" {
		return &ContractError{Field: "$", Constraint: "response is empty"}
	}
	if !strings.HasPrefix(body, "{") {
		return &ContractError{Field: "$", Constraint: "must be a JSON object"}
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "$"
			}
			return &ContractError{Field: field, Constraint: fmt.Sprintf("must be of type %s, got %s", typeErr.Type, typeErr.Value)}
		}
		return &ContractError{Field: "$", Constraint: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func contractError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ContractError{Field: "$", Constraint: err.Error()}
	}
	fe := verrs[0]
	return &ContractError{Field: fieldPath(fe.Namespace()), Constraint: describe(fe)}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nonblank":
		return "must not be blank"
	case "climb_style", "failure_reason":
		return fmt.Sprintf("%q is not an allowed value", fe.Value())
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("must contain %s %s items", bound, fe.Param())
		default:
			return fmt.Sprintf("must be %s %s", bound, fe.Param())
		}
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/crux-journal/internal/grades"
	"github.com/benvon/crux-journal/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Report JSON field names so contract errors match what the model produced
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	register("nonblank", validateNonBlank)
	register("climb_style", validateClimbStyle)
	register("failure_reason", validateFailureReason)
	register("discipline", validateDiscipline)
	register("outcome", validateOutcome)
	register("grade_scale", validateGradeScale)
	register("awkwardness", validateAwkwardness)
}

func register(tag string, fn validator.Func) {
	if err := Validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
	}
}

func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateClimbStyle validates that a string is in the style vocabulary
func validateClimbStyle(fl validator.FieldLevel) bool {
	return models.ClimbStyle(fl.Field().String()).Valid()
}

// validateFailureReason validates that a string is in the failure reason vocabulary
func validateFailureReason(fl validator.FieldLevel) bool {
	return models.FailureReason(fl.Field().String()).Valid()
}

func validateDiscipline(fl validator.FieldLevel) bool {
	switch models.Discipline(fl.Field().String()) {
	case models.DisciplineBouldering, models.DisciplineSport, models.DisciplineTrad, models.DisciplineTopRope:
		return true
	default:
		return false
	}
}

func validateOutcome(fl validator.FieldLevel) bool {
	switch models.Outcome(fl.Field().String()) {
	case models.OutcomeSent, models.OutcomeFail:
		return true
	default:
		return false
	}
}

func validateGradeScale(fl validator.FieldLevel) bool {
	return grades.Grades(grades.Scale(fl.Field().String())) != nil
}

func validateAwkwardness(fl validator.FieldLevel) bool {
	return models.Awkwardness(fl.Field().Int()).Valid()
}

// ValidateGrade checks that a grade belongs to the scale it was logged in
func ValidateGrade(scale, grade string) error {
	if grades.Grades(grades.Scale(scale)) == nil {
		names := make([]string, 0, len(grades.Scales()))
		for _, s := range grades.Scales() {
			names = append(names, string(s))
		}
		return fmt.Errorf("invalid grade_scale: %s (must be one of %s)", scale, strings.Join(names, ", "))
	}
	if !grades.ValidGrade(grades.Scale(scale), grade) {
		return fmt.Errorf("invalid grade %q for scale %s", grade, scale)
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

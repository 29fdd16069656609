package coach

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/benvon/crux-journal/internal/models"
)

var (
	// ErrUserNotFound is returned when the requesting user does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrClimbNotFound is returned when a climb does not exist
	ErrClimbNotFound = errors.New("climb not found")
	// ErrForbidden is returned when a climb belongs to another user
	ErrForbidden = errors.New("climb does not belong to user")
	// ErrGenerationFailed is returned when every attempt failed and nothing usable was cached
	ErrGenerationFailed = errors.New("recommendation generation failed")
	// ErrInvalidMessage is returned for an empty or oversized chat message
	ErrInvalidMessage = errors.New("invalid chat message")
)

// QuotaError is returned when a user's daily allowance for a kind of call is used up
type QuotaError struct {
	Kind     models.QuotaKind
	Limit    int
	ResetsAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("daily %s limit of %d reached, resets %s", e.Kind, e.Limit, e.ResetsIn())
}

// ResetsIn is a human-readable hint such as "5 hours from now"
func (e *QuotaError) ResetsIn() string {
	return humanize.Time(e.ResetsAt)
}

// IsQuotaError reports whether err is a daily allowance error
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

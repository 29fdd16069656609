package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
)

// QuotaLimits are per-user daily allowances
type QuotaLimits struct {
	Recommendations int
	ChatTurns       int
	TagExtractions  int
}

// For returns the limit for one kind of call
func (l QuotaLimits) For(kind models.QuotaKind) int {
	switch kind {
	case models.QuotaRecommendation:
		return l.Recommendations
	case models.QuotaChat:
		return l.ChatTurns
	case models.QuotaTagExtraction:
		return l.TagExtractions
	default:
		return 0
	}
}

// QuotaStatus is a snapshot of one daily counter
type QuotaStatus struct {
	Kind     models.QuotaKind `json:"kind"`
	Count    int              `json:"count"`
	Limit    int              `json:"limit"`
	ResetsIn string           `json:"resets_in"`
}

// QuotaGuard checks and consumes daily allowances stored in Postgres
type QuotaGuard struct {
	repo   database.QuotaRepositoryInterface
	limits QuotaLimits
	now    func() time.Time
}

// NewQuotaGuard creates a quota guard. A zero limit refuses every call of that kind.
func NewQuotaGuard(repo database.QuotaRepositoryInterface, limits QuotaLimits) *QuotaGuard {
	return &QuotaGuard{
		repo:   repo,
		limits: limits,
		now:    time.Now,
	}
}

// Consume takes one unit of the kind's allowance or returns a *QuotaError
func (g *QuotaGuard) Consume(ctx context.Context, userID uuid.UUID, kind models.QuotaKind) error {
	now := g.now()
	limit := g.limits.For(kind)
	_, ok, err := g.repo.TryIncrement(ctx, userID, kind, limit, now)
	if err != nil {
		return fmt.Errorf("failed to consume %s quota: %w", kind, err)
	}
	if !ok {
		return &QuotaError{Kind: kind, Limit: limit, ResetsAt: nextReset(now)}
	}
	return nil
}

// Status returns every counter for the user, in a fixed order
func (g *QuotaGuard) Status(ctx context.Context, userID uuid.UUID) ([]QuotaStatus, error) {
	now := g.now()
	resetsIn := humanize.RelTime(nextReset(now), now, "ago", "from now")

	statuses := make([]QuotaStatus, 0, len(models.QuotaKinds))
	for _, kind := range models.QuotaKinds {
		counter, err := g.repo.Get(ctx, userID, kind, now)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s quota: %w", kind, err)
		}
		statuses = append(statuses, QuotaStatus{
			Kind:     kind,
			Count:    counter.Count,
			Limit:    g.limits.For(kind),
			ResetsIn: resetsIn,
		})
	}
	return statuses, nil
}

// nextReset is the next UTC midnight after now
func nextReset(now time.Time) time.Time {
	return database.UTCDate(now).AddDate(0, 0, 1)
}

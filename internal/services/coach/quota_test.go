package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/models"
)

func TestQuotaLimits_For(t *testing.T) {
	t.Parallel()

	limits := QuotaLimits{Recommendations: 1, ChatTurns: 2, TagExtractions: 3}
	tests := []struct {
		kind models.QuotaKind
		want int
	}{
		{models.QuotaRecommendation, 1},
		{models.QuotaChat, 2},
		{models.QuotaTagExtraction, 3},
		{models.QuotaKind("unknown"), 0},
	}
	for _, tt := range tests {
		if got := limits.For(tt.kind); got != tt.want {
			t.Errorf("For(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestQuotaGuard_Consume(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	guard := NewQuotaGuard(&mockQuotaRepo{}, QuotaLimits{Recommendations: 3})
	guard.now = func() time.Time { return now }
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := guard.Consume(context.Background(), userID, models.QuotaRecommendation); err != nil {
			t.Fatalf("Consume() #%d error = %v", i+1, err)
		}
	}

	err := guard.Consume(context.Background(), userID, models.QuotaRecommendation)
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("Consume() #4 error = %v, want *QuotaError", err)
	}
	if qe.Limit != 3 || qe.Kind != models.QuotaRecommendation {
		t.Errorf("QuotaError = %+v", qe)
	}
	wantReset := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if !qe.ResetsAt.Equal(wantReset) {
		t.Errorf("ResetsAt = %v, want %v", qe.ResetsAt, wantReset)
	}
	if !strings.Contains(qe.Error(), "daily recommendation limit of 3") {
		t.Errorf("Error() = %q", qe.Error())
	}
}

func TestQuotaGuard_Consume_StorageError(t *testing.T) {
	t.Parallel()

	guard := NewQuotaGuard(&mockQuotaRepo{err: errors.New("db down")}, defaultTestLimits())
	err := guard.Consume(context.Background(), uuid.New(), models.QuotaChat)
	if err == nil || IsQuotaError(err) {
		t.Errorf("Consume() error = %v, want a storage error", err)
	}
}

func TestQuotaGuard_Status(t *testing.T) {
	t.Parallel()

	repo := &mockQuotaRepo{counts: map[models.QuotaKind]int{models.QuotaChat: 7}}
	guard := NewQuotaGuard(repo, defaultTestLimits())

	statuses, err := guard.Status(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}
	chat := statuses[1]
	if chat.Kind != models.QuotaChat || chat.Count != 7 || chat.Limit != defaultTestLimits().ChatTurns {
		t.Errorf("chat status = %+v", chat)
	}
	if !strings.HasSuffix(chat.ResetsIn, "from now") {
		t.Errorf("ResetsIn = %q, want a future hint", chat.ResetsIn)
	}
}

func TestNextReset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"midday", time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"exactly midnight", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"year end", time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"non-UTC input", time.Date(2026, 1, 15, 20, 0, 0, 0, time.FixedZone("PST", -8*3600)), time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := nextReset(tt.now); !got.Equal(tt.want) {
				t.Errorf("nextReset() = %v, want %v", got, tt.want)
			}
		})
	}
}

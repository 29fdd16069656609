package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/coach"
)

func serveUsage(h *UsageHandler, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/usage").Subrouter())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUsageHandler_GetToday(t *testing.T) {
	t.Parallel()

	user := testUser()
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	statuses := []coach.QuotaStatus{
		{Kind: models.QuotaRecommendation, Count: 1, Limit: 3, ResetsIn: "8 hours from now"},
		{Kind: models.QuotaChat, Count: 12, Limit: 50, ResetsIn: "8 hours from now"},
	}
	var gotSince time.Time
	quota := &mockQuotaStatus{StatusFunc: func(ctx context.Context, userID uuid.UUID) ([]coach.QuotaStatus, error) {
		return statuses, nil
	}}
	usage := &mockUsageRepo{TotalsSinceFunc: func(ctx context.Context, userID uuid.UUID, since time.Time) (*database.UsageTotals, error) {
		gotSince = since
		return &database.UsageTotals{Calls: 13, TotalTokens: 21000, CostUSD: 0.042}, nil
	}}
	h := NewUsageHandler(quota, usage)
	h.now = func() time.Time { return now }

	w := serveUsage(h, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/usage/today", nil), user))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC); !gotSince.Equal(want) {
		t.Errorf("since = %v, want %v", gotSince, want)
	}

	var resp UsageTodayResponse
	decodeData(t, w, &resp)
	if resp.Date != "2026-03-04" {
		t.Errorf("date = %q", resp.Date)
	}
	if diff := cmp.Diff(statuses, resp.Quotas); diff != "" {
		t.Errorf("quotas mismatch (-want +got):\n%s", diff)
	}
	if resp.Usage == nil || resp.Usage.Calls != 13 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestUsageHandler_GetToday_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		quotaErr error
		usageErr error
	}{
		{"quota lookup fails", errors.New("db down"), nil},
		{"usage lookup fails", nil, errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			quota := &mockQuotaStatus{StatusFunc: func(ctx context.Context, userID uuid.UUID) ([]coach.QuotaStatus, error) {
				return nil, tt.quotaErr
			}}
			usage := &mockUsageRepo{TotalsSinceFunc: func(ctx context.Context, userID uuid.UUID, since time.Time) (*database.UsageTotals, error) {
				return &database.UsageTotals{}, tt.usageErr
			}}
			w := serveUsage(NewUsageHandler(quota, usage), withUser(httptest.NewRequest(http.MethodGet, "/api/v1/usage/today", nil), testUser()))
			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", w.Code)
			}
		})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func healthy(ctx context.Context) error { return nil }

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	broken := func(ctx context.Context) error {
		return errors.New("dial tcp db.internal:5432: connection refused")
	}

	tests := []struct {
		name       string
		checker    *HealthChecker
		query      string
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "basic ignores dependencies",
			checker:    NewHealthChecker().AddCheck("database", broken),
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "extended all healthy",
			checker:    NewHealthChecker().AddCheck("database", healthy).AddCheck("redis", healthy).AddCheck("queue", nil),
			query:      "?mode=extended",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy", "queue": "not configured"},
		},
		{
			name:       "extended dependency down",
			checker:    NewHealthChecker().AddCheck("database", broken).AddCheck("redis", healthy),
			query:      "?mode=extended",
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantChecks: map[string]string{"database": "unhealthy", "redis": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			tt.checker.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if strings.Contains(w.Body.String(), "db.internal") {
				t.Error("dependency error leaked into response")
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantState)
			}
			if resp.Timestamp == "" {
				t.Error("expected timestamp")
			}
			if diff := cmp.Diff(tt.wantChecks, resp.Checks); diff != "" {
				t.Errorf("checks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

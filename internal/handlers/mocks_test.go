package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/request"
	"github.com/benvon/crux-journal/internal/services/coach"
)

type mockClimbRepo struct {
	CreateFunc           func(ctx context.Context, climb *models.Climb) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Climb, error)
	ListRecentByUserFunc func(ctx context.Context, userID uuid.UUID, limit int) ([]models.Climb, error)
	UpdateTagsFunc       func(ctx context.Context, climb *models.Climb) error
	MarkSentFunc         func(ctx context.Context, id uuid.UUID, at time.Time) (*models.Climb, error)
}

func (m *mockClimbRepo) Create(ctx context.Context, climb *models.Climb) error {
	if m.CreateFunc == nil {
		return nil
	}
	return m.CreateFunc(ctx, climb)
}

func (m *mockClimbRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Climb, error) {
	if m.GetByIDFunc == nil {
		return nil, database.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockClimbRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Climb, error) {
	if m.ListRecentByUserFunc == nil {
		return nil, nil
	}
	return m.ListRecentByUserFunc(ctx, userID, limit)
}

func (m *mockClimbRepo) UpdateTags(ctx context.Context, climb *models.Climb) error {
	if m.UpdateTagsFunc == nil {
		return nil
	}
	return m.UpdateTagsFunc(ctx, climb)
}

func (m *mockClimbRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*models.Climb, error) {
	return m.MarkSentFunc(ctx, id, at)
}

type mockTagExtractor struct {
	ExtractFunc func(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error)
}

func (m *mockTagExtractor) Extract(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error) {
	return m.ExtractFunc(ctx, userID, climbID)
}

type mockJobQueue struct {
	EnqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.enqueued = append(m.enqueued, job)
	if m.EnqueueFunc == nil {
		return nil
	}
	return m.EnqueueFunc(ctx, job)
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

type mockRecommendationService struct {
	GenerateFunc func(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error)
	LatestFunc   func(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error)
}

func (m *mockRecommendationService) Generate(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error) {
	return m.GenerateFunc(ctx, userID)
}

func (m *mockRecommendationService) Latest(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	return m.LatestFunc(ctx, userID)
}

type mockChatService struct {
	StreamFunc  func(ctx context.Context, userID uuid.UUID, message string, emit func(delta string) error) (*models.ChatMessage, error)
	HistoryFunc func(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

func (m *mockChatService) Stream(ctx context.Context, userID uuid.UUID, message string, emit func(delta string) error) (*models.ChatMessage, error) {
	return m.StreamFunc(ctx, userID, message, emit)
}

func (m *mockChatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	return m.HistoryFunc(ctx, userID, limit)
}

type mockPreferencesRepo struct {
	GetByUserIDFunc func(ctx context.Context, userID uuid.UUID) (*models.CoachingPreferences, error)
	UpsertFunc      func(ctx context.Context, prefs *models.CoachingPreferences) error
}

func (m *mockPreferencesRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CoachingPreferences, error) {
	return m.GetByUserIDFunc(ctx, userID)
}

func (m *mockPreferencesRepo) Upsert(ctx context.Context, prefs *models.CoachingPreferences) error {
	if m.UpsertFunc == nil {
		return nil
	}
	return m.UpsertFunc(ctx, prefs)
}

type mockQuotaStatus struct {
	StatusFunc func(ctx context.Context, userID uuid.UUID) ([]coach.QuotaStatus, error)
}

func (m *mockQuotaStatus) Status(ctx context.Context, userID uuid.UUID) ([]coach.QuotaStatus, error) {
	return m.StatusFunc(ctx, userID)
}

type mockUsageRepo struct {
	TotalsSinceFunc func(ctx context.Context, userID uuid.UUID, since time.Time) (*database.UsageTotals, error)
}

func (m *mockUsageRepo) Create(ctx context.Context, rec *models.UsageRecord) error { return nil }

func (m *mockUsageRepo) TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*database.UsageTotals, error) {
	return m.TotalsSinceFunc(ctx, userID, since)
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "climber@example.com"}
}

// withUser attaches user to req the way the auth middleware does
func withUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(request.WithUser(req.Context(), user))
}

// envelope is the decoded respondJSON / respondJSONError body
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Fatalf("expected success response, got error %q: %s", env.Error, env.Message)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

package coach

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/ai"
)

// mockProvider is a mock implementation of ai.AIProvider
type mockProvider struct {
	mu           sync.Mutex
	completeFunc func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error)
	streamFunc   func(ctx context.Context, req ai.CompletionRequest, onDelta func(string) error) (*ai.Completion, error)
	requests     []ai.CompletionRequest
}

func (m *mockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return &ai.Completion{Content: "{}", Model: "gpt-4o-mini"}, nil
}

func (m *mockProvider) Stream(ctx context.Context, req ai.CompletionRequest, onDelta func(string) error) (*ai.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.streamFunc != nil {
		return m.streamFunc(ctx, req, onDelta)
	}
	return &ai.Completion{Model: "gpt-4o-mini"}, nil
}

func (m *mockProvider) Model() string {
	return "gpt-4o-mini"
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

var _ ai.AIProvider = (*mockProvider)(nil)

// completions returns a completeFunc that answers with each content in turn
func completions(contents ...string) func(context.Context, ai.CompletionRequest) (*ai.Completion, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, ai.CompletionRequest) (*ai.Completion, error) {
		mu.Lock()
		defer mu.Unlock()
		c := contents[len(contents)-1]
		if i < len(contents) {
			c = contents[i]
		}
		i++
		return &ai.Completion{
			Content: c,
			Model:   "gpt-4o-mini",
			Usage:   ai.Usage{PromptTokens: 100, CompletionTokens: 50},
		}, nil
	}
}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.User{ID: id, Email: "climber@example.com"}, nil
}

var _ database.UserRepositoryInterface = (*mockUserRepo)(nil)

type mockClimbRepo struct {
	mu          sync.Mutex
	climbs      []models.Climb
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Climb, error)
	updateErr   error
	updated     []*models.Climb
}

func (m *mockClimbRepo) Create(ctx context.Context, climb *models.Climb) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.climbs = append([]models.Climb{*climb}, m.climbs...)
	return nil
}

func (m *mockClimbRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Climb, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.climbs {
		if m.climbs[i].ID == id {
			c := m.climbs[i]
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockClimbRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Climb, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Climb, 0)
	for _, c := range m.climbs {
		if c.UserID == userID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClimbRepo) UpdateTags(ctx context.Context, climb *models.Climb) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	c := *climb
	m.updated = append(m.updated, &c)
	return nil
}

func (m *mockClimbRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*models.Climb, error) {
	return nil, database.ErrNotFound
}

var _ database.ClimbRepositoryInterface = (*mockClimbRepo)(nil)

type mockRecommendationRepo struct {
	mu              sync.Mutex
	latestValidFunc func(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error)
	created         []*models.Recommendation
	annotated       map[uuid.UUID]string
}

func (m *mockRecommendationRepo) Create(ctx context.Context, rec *models.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.created = append(m.created, rec)
	return nil
}

func (m *mockRecommendationRepo) LatestValid(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	if m.latestValidFunc != nil {
		return m.latestValidFunc(ctx, userID)
	}
	return nil, database.ErrNotFound
}

func (m *mockRecommendationRepo) AnnotateError(ctx context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.annotated == nil {
		m.annotated = make(map[uuid.UUID]string)
	}
	m.annotated[id] = message
	return nil
}

var _ database.RecommendationRepositoryInterface = (*mockRecommendationRepo)(nil)

type mockUsageRepo struct {
	mu      sync.Mutex
	records []*models.UsageRecord
}

func (m *mockUsageRepo) Create(ctx context.Context, rec *models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockUsageRepo) TotalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*database.UsageTotals, error) {
	return &database.UsageTotals{}, nil
}

func (m *mockUsageRepo) snapshot() []*models.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.UsageRecord(nil), m.records...)
}

var _ database.UsageRepositoryInterface = (*mockUsageRepo)(nil)

// mockQuotaRepo keeps counters in memory with the same semantics as the Postgres upsert
type mockQuotaRepo struct {
	mu     sync.Mutex
	counts map[models.QuotaKind]int
	err    error
}

func (m *mockQuotaRepo) TryIncrement(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, limit int, now time.Time) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	if m.counts == nil {
		m.counts = make(map[models.QuotaKind]int)
	}
	if m.counts[kind] >= limit {
		return m.counts[kind], false, nil
	}
	m.counts[kind]++
	return m.counts[kind], true, nil
}

func (m *mockQuotaRepo) Get(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, now time.Time) (*models.QuotaCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.QuotaCounter{UserID: userID, Kind: kind, Count: m.counts[kind]}, nil
}

var _ database.QuotaRepositoryInterface = (*mockQuotaRepo)(nil)

type mockChatRepo struct {
	mu      sync.Mutex
	history []models.ChatMessage
	created []models.ChatMessage
}

func (m *mockChatRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *msg)
	return nil
}

func (m *mockChatRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatMessage(nil), m.history...), nil
}

var _ database.ChatMessageRepositoryInterface = (*mockChatRepo)(nil)

type mockPreferencesRepo struct {
	prefs *models.CoachingPreferences
}

func (m *mockPreferencesRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.CoachingPreferences, error) {
	if m.prefs == nil {
		return nil, database.ErrNotFound
	}
	return m.prefs, nil
}

func (m *mockPreferencesRepo) Upsert(ctx context.Context, prefs *models.CoachingPreferences) error {
	m.prefs = prefs
	return nil
}

var _ database.PreferencesRepositoryInterface = (*mockPreferencesRepo)(nil)

func defaultTestLimits() QuotaLimits {
	return QuotaLimits{Recommendations: 3, ChatTurns: 50, TagExtractions: 50}
}

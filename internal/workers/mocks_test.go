package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/services/coach"
)

// mockMessage is a mock implementation of queue.MessageInterface that records acknowledgements
type mockMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockJobQueue is a mock implementation of queue.JobQueue
type mockJobQueue struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(ctx context.Context) error {
	return nil
}

var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockTagExtractor is a mock implementation of TagExtractor
type mockTagExtractor struct {
	extractFunc func(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error)
	calls       int
}

func (m *mockTagExtractor) Extract(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error) {
	m.calls++
	if m.extractFunc != nil {
		return m.extractFunc(ctx, userID, climbID)
	}
	return &coach.TagOutcome{TagsExtracted: true, Attempts: 1}, nil
}

var _ TagExtractor = (*mockTagExtractor)(nil)

// mockRecommendationGenerator is a mock implementation of RecommendationGenerator
type mockRecommendationGenerator struct {
	generateFunc func(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error)
	calls        int
}

func (m *mockRecommendationGenerator) Generate(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, userID)
	}
	return &coach.Outcome{State: coach.StateSucceeded, Attempts: 1}, nil
}

var _ RecommendationGenerator = (*mockRecommendationGenerator)(nil)

// mockUserActivityRepo is a mock implementation of database.UserActivityRepositoryInterface
type mockUserActivityRepo struct {
	activeUsersFunc   func(ctx context.Context, since time.Time) ([]uuid.UUID, error)
	pauseInactiveFunc func(ctx context.Context, cutoff time.Time) (int64, error)
	activeSince       time.Time
	pausedCutoff      time.Time
}

func (m *mockUserActivityRepo) UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (m *mockUserActivityRepo) ActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	m.activeSince = since
	if m.activeUsersFunc != nil {
		return m.activeUsersFunc(ctx, since)
	}
	return []uuid.UUID{}, nil
}

func (m *mockUserActivityRepo) PauseInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	m.pausedCutoff = cutoff
	if m.pauseInactiveFunc != nil {
		return m.pauseInactiveFunc(ctx, cutoff)
	}
	return 0, nil
}

var _ database.UserActivityRepositoryInterface = (*mockUserActivityRepo)(nil)

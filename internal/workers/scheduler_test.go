package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/queue"
)

func newTestScheduler(t *testing.T, q *mockJobQueue, repo *mockUserActivityRepo) *RecommendationScheduler {
	t.Helper()
	s, err := NewRecommendationScheduler(q, repo, "", 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRecommendationScheduler() error = %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestNewRecommendationScheduler_Spec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"default", "", false},
		{"weekdays", "0 9 * * 1-5", false},
		{"too few fields", "0 6 *", true},
		{"seconds field not accepted", "0 0 6 * * 1", true},
		{"garbage", "every monday", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRecommendationScheduler(&mockJobQueue{}, &mockUserActivityRepo{}, tt.spec, 0, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecommendationScheduler_Next(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &mockJobQueue{}, &mockUserActivityRepo{})

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		// 2026-03-02 is a Monday
		{"monday before six", time.Date(2026, 3, 2, 5, 59, 0, 0, time.UTC), time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)},
		{"monday at six", time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)},
		{"midweek", time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)},
		{"non-UTC input", time.Date(2026, 3, 1, 23, 0, 0, 0, time.FixedZone("EST", -5*3600)), time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Next(tt.from); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestRecommendationScheduler_ScheduleWeeklyRecommendations(t *testing.T) {
	t.Parallel()

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	repo := &mockUserActivityRepo{
		activeUsersFunc: func(context.Context, time.Time) ([]uuid.UUID, error) {
			return users, nil
		},
		pauseInactiveFunc: func(context.Context, time.Time) (int64, error) {
			return 4, nil
		},
	}
	q := &mockJobQueue{}
	s := newTestScheduler(t, q, repo)

	n, err := s.ScheduleWeeklyRecommendations(context.Background())
	if err != nil {
		t.Fatalf("ScheduleWeeklyRecommendations() error = %v", err)
	}
	if n != len(users) {
		t.Errorf("enqueued = %d, want %d", n, len(users))
	}

	wantCutoff := fixedNow.Add(-DefaultActivityWindow)
	if !repo.activeSince.Equal(wantCutoff) || !repo.pausedCutoff.Equal(wantCutoff) {
		t.Errorf("cutoffs = %v / %v, want %v", repo.activeSince, repo.pausedCutoff, wantCutoff)
	}

	for i, job := range q.enqueued {
		if job.Type != queue.JobTypeWeeklyRecommendation || job.UserID != users[i] || job.ClimbID != nil {
			t.Errorf("job %d = %+v", i, job)
		}
		if job.NotAfter == nil || !job.NotAfter.Equal(fixedNow.Add(weeklyJobLifetime)) {
			t.Errorf("job %d NotAfter = %v", i, job.NotAfter)
		}
	}
}

func TestRecommendationScheduler_ScheduleWeeklyRecommendations_Errors(t *testing.T) {
	t.Parallel()

	t.Run("pause fails", func(t *testing.T) {
		t.Parallel()
		repo := &mockUserActivityRepo{pauseInactiveFunc: func(context.Context, time.Time) (int64, error) {
			return 0, errors.New("db down")
		}}
		q := &mockJobQueue{}
		if _, err := newTestScheduler(t, q, repo).ScheduleWeeklyRecommendations(context.Background()); err == nil {
			t.Error("expected an error")
		}
		if len(q.enqueued) != 0 {
			t.Error("no jobs should be enqueued")
		}
	})

	t.Run("listing fails", func(t *testing.T) {
		t.Parallel()
		repo := &mockUserActivityRepo{activeUsersFunc: func(context.Context, time.Time) ([]uuid.UUID, error) {
			return nil, errors.New("db down")
		}}
		if _, err := newTestScheduler(t, &mockJobQueue{}, repo).ScheduleWeeklyRecommendations(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("one enqueue fails", func(t *testing.T) {
		t.Parallel()
		bad := uuid.New()
		repo := &mockUserActivityRepo{activeUsersFunc: func(context.Context, time.Time) ([]uuid.UUID, error) {
			return []uuid.UUID{uuid.New(), bad, uuid.New()}, nil
		}}
		q := &mockJobQueue{enqueueFunc: func(_ context.Context, job *queue.Job) error {
			if job.UserID == bad {
				return errors.New("channel closed")
			}
			return nil
		}}
		n, err := newTestScheduler(t, q, repo).ScheduleWeeklyRecommendations(context.Background())
		if err != nil {
			t.Fatalf("ScheduleWeeklyRecommendations() error = %v", err)
		}
		if n != 2 {
			t.Errorf("enqueued = %d, want 2", n)
		}
	})
}

func TestRecommendationScheduler_Start_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &mockJobQueue{}, &mockUserActivityRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

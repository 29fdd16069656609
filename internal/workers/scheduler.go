package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/queue"
)

const (
	// DefaultRecommendationSchedule is Mondays at 06:00 UTC
	DefaultRecommendationSchedule = "0 6 * * 1"
	// DefaultActivityWindow is how recently a user must have used the API to get a weekly plan
	DefaultActivityWindow = 14 * 24 * time.Hour

	// weeklyJobLifetime is how long a scheduled job stays worth running
	weeklyJobLifetime = 24 * time.Hour
)

// RecommendationScheduler enqueues weekly_recommendation jobs for active users on a cron schedule
type RecommendationScheduler struct {
	jobQueue     queue.JobQueue
	activityRepo database.UserActivityRepositoryInterface
	schedule     cron.Schedule
	spec         string
	window       time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewRecommendationScheduler parses spec as a standard 5-field cron expression evaluated in UTC
func NewRecommendationScheduler(
	jobQueue queue.JobQueue,
	activityRepo database.UserActivityRepositoryInterface,
	spec string,
	window time.Duration,
	logger *zap.Logger,
) (*RecommendationScheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultRecommendationSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid recommendation schedule %q: %w", spec, err)
	}
	if window <= 0 {
		window = DefaultActivityWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationScheduler{
		jobQueue:     jobQueue,
		activityRepo: activityRepo,
		schedule:     schedule,
		spec:         spec,
		window:       window,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Next returns the first scheduled run after t
func (s *RecommendationScheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Start runs the schedule until ctx is cancelled
func (s *RecommendationScheduler) Start(ctx context.Context) {
	s.logger.Info("recommendation_scheduler_started",
		zap.String("schedule", s.spec),
		zap.Duration("activity_window", s.window),
	)

	for {
		now := s.now().UTC()
		next := s.Next(now)
		s.logger.Debug("recommendation_scheduler_next_run", zap.Time("next_run", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("recommendation_scheduler_stopped")
			return
		case <-timer.C:
		}

		if _, err := s.ScheduleWeeklyRecommendations(ctx); err != nil {
			s.logger.Error("weekly_recommendation_scheduling_failed",
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
	}
}

// ScheduleWeeklyRecommendations pauses users idle for longer than the activity window, then
// enqueues one job per remaining active user. Returns the number of jobs enqueued.
func (s *RecommendationScheduler) ScheduleWeeklyRecommendations(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.window)

	paused, err := s.activityRepo.PauseInactiveSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to pause inactive users: %w", err)
	}

	users, err := s.activityRepo.ActiveUsersSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to get active users: %w", err)
	}

	enqueued := 0
	for _, userID := range users {
		if err := s.enqueue(ctx, userID, now); err != nil {
			s.logger.Warn("failed_to_schedule_weekly_recommendation",
				zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			continue
		}
		enqueued++
	}

	s.logger.Info("scheduled_weekly_recommendations",
		zap.Int("active_users", len(users)),
		zap.Int("enqueued", enqueued),
		zap.Int64("paused", paused),
	)
	return enqueued, nil
}

func (s *RecommendationScheduler) enqueue(ctx context.Context, userID uuid.UUID, now time.Time) error {
	job := queue.NewJob(queue.JobTypeWeeklyRecommendation, userID, nil)
	notAfter := now.Add(weeklyJobLifetime)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue weekly recommendation job: %w", err)
	}
	return nil
}

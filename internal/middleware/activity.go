package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
)

// DefaultActivityWriteInterval is the minimum time between activity writes for one user
const DefaultActivityWriteInterval = time.Minute

// ActivityRecorder stores a user's last API interaction
type ActivityRecorder interface {
	UpdateLastInteraction(ctx context.Context, userID uuid.UUID) error
}

// ActivityTracker records when authenticated users last used the API. The weekly
// scheduler only plans for users seen within its activity window, and a recorded
// interaction resumes a paused user.
type ActivityTracker struct {
	repo     ActivityRecorder
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastWrite map[uuid.UUID]time.Time
}

// NewActivityTracker creates an activity tracker
func NewActivityTracker(repo ActivityRecorder, interval time.Duration, logger *zap.Logger) *ActivityTracker {
	if interval <= 0 {
		interval = DefaultActivityWriteInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityTracker{
		repo:      repo,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		lastWrite: make(map[uuid.UUID]time.Time),
	}
}

// Middleware records activity for authenticated requests. It must run after Auth.
// Failures are logged and never fail the request.
func (t *ActivityTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := UserFromContext(r); user != nil && t.due(user.ID) {
			if err := t.repo.UpdateLastInteraction(r.Context(), user.ID); err != nil {
				t.forget(user.ID)
				t.logger.Warn("activity_update_failed",
					zap.String("user_id", logpkg.SanitizeUserID(user.ID.String())),
					zap.String("error", logpkg.SanitizeError(err)),
				)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// due reports whether a write is needed and, if so, claims it
func (t *ActivityTracker) due(userID uuid.UUID) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastWrite[userID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastWrite[userID] = now
	return true
}

func (t *ActivityTracker) forget(userID uuid.UUID) {
	t.mu.Lock()
	delete(t.lastWrite, userID)
	t.mu.Unlock()
}

package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries bounds how often a failing job is re-published before it is dead-lettered.
const DefaultMaxRetries = 3

// JobType selects the processor a job is routed to.
type JobType string

const (
	// JobTypeTagExtraction extracts style and failure tags from one climb's notes
	JobTypeTagExtraction JobType = "tag_extraction"
	// JobTypeWeeklyRecommendation generates a user's weekly training plan
	JobTypeWeeklyRecommendation JobType = "weekly_recommendation"
)

// Job is the JSON body of every queued message. NotBefore and NotAfter bound the window in
// which a worker may run it; nil means unbounded on that side.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	ClimbID    *uuid.UUID `json:"climb_id,omitempty"`
	NotBefore  *time.Time `json:"not_before,omitempty"`
	NotAfter   *time.Time `json:"not_after,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewJob creates a job for userID. climbID is only set for tag extraction.
func NewJob(jobType JobType, userID uuid.UUID, climbID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		ClimbID:    climbID,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

// ReadyAt reports whether the job may run at now.
func (j *Job) ReadyAt(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.ExpiredAt(now)
}

// ExpiredAt reports whether the job's window closed before now.
func (j *Job) ExpiredAt(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Deferred returns a copy of the job that may not run before until.
func (j *Job) Deferred(until time.Time) *Job {
	next := *j
	next.NotBefore = &until
	return &next
}

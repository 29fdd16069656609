package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	climbID := uuid.New()
	job := NewJob(JobTypeTagExtraction, userID, &climbID)

	if job.ID == uuid.Nil {
		t.Error("job ID not set")
	}
	if job.Type != JobTypeTagExtraction || job.UserID != userID {
		t.Errorf("job = %+v, want tag extraction for %s", job, userID)
	}
	if job.ClimbID == nil || *job.ClimbID != climbID {
		t.Errorf("ClimbID = %v, want %s", job.ClimbID, climbID)
	}
	if job.MaxRetries != DefaultMaxRetries || job.RetryCount != 0 {
		t.Errorf("retries = %d/%d, want 0/%d", job.RetryCount, job.MaxRetries, DefaultMaxRetries)
	}
}

func TestNewJob_WeeklyRecommendationHasNoClimb(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(NewJob(JobTypeWeeklyRecommendation, uuid.New(), nil))
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	if _, ok := decoded["climb_id"]; ok {
		t.Errorf("climb_id should be omitted, got %s", body)
	}
	if decoded["type"] != string(JobTypeWeeklyRecommendation) {
		t.Errorf("type = %v, want %s", decoded["type"], JobTypeWeeklyRecommendation)
	}
}

func TestJob_Window(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	hourAgo, inAnHour := now.Add(-time.Hour), now.Add(time.Hour)
	twoHoursAgo := now.Add(-2 * time.Hour)

	tests := []struct {
		name        string
		notBefore   *time.Time
		notAfter    *time.Time
		wantReady   bool
		wantExpired bool
	}{
		{name: "unbounded", wantReady: true},
		{name: "start passed", notBefore: &hourAgo, wantReady: true},
		{name: "start ahead", notBefore: &inAnHour},
		{name: "end passed", notAfter: &hourAgo, wantExpired: true},
		{name: "end ahead", notAfter: &inAnHour, wantReady: true},
		{name: "inside window", notBefore: &hourAgo, notAfter: &inAnHour, wantReady: true},
		{name: "window closed", notBefore: &twoHoursAgo, notAfter: &hourAgo, wantExpired: true},
		{name: "end exactly now", notAfter: &now, wantReady: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{ID: uuid.New(), Type: JobTypeWeeklyRecommendation, NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			if got := job.ReadyAt(now); got != tt.wantReady {
				t.Errorf("ReadyAt() = %v, want %v", got, tt.wantReady)
			}
			if got := job.ExpiredAt(now); got != tt.wantExpired {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.wantExpired)
			}
		})
	}
}

func TestJob_Deferred(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeTagExtraction, uuid.New(), nil)
	job.RetryCount = 1
	until := time.Date(2026, 3, 2, 6, 5, 0, 0, time.UTC)

	next := job.Deferred(until)
	if next == job {
		t.Fatal("Deferred() returned the same job")
	}
	if next.ID != job.ID || next.RetryCount != 1 {
		t.Errorf("Deferred() = %+v, want same ID and retry count", next)
	}
	if next.NotBefore == nil || !next.NotBefore.Equal(until) {
		t.Errorf("NotBefore = %v, want %v", next.NotBefore, until)
	}
	if job.NotBefore != nil {
		t.Error("Deferred() modified the original job")
	}
}

func TestJob_CanRetry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeTagExtraction, uuid.New(), nil)
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false after %d retries, want true", i)
		}
		job.RetryCount++
	}
	if job.CanRetry() {
		t.Errorf("CanRetry() = true after %d retries, want false", job.RetryCount)
	}
}

package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	inFive := now.Add(5 * time.Second)
	inAWeek := now.Add(7 * 24 * time.Hour)
	past := now.Add(-time.Minute)
	topo := DefaultTopology()

	tests := []struct {
		name           string
		notBefore      *time.Time
		notAfter       *time.Time
		delayed        bool
		wantExchange   string
		wantDelay      any
		wantExpiration string
	}{
		{name: "immediate", delayed: true, wantExchange: topo.Exchange},
		{name: "deferred with plugin", notBefore: &inFive, delayed: true, wantExchange: topo.DelayedExchange, wantDelay: int64(5000)},
		{name: "deferred without plugin", notBefore: &inFive, wantExchange: topo.Exchange},
		{name: "not before already passed", notBefore: &past, delayed: true, wantExchange: topo.Exchange},
		{name: "ttl from not after", notAfter: &inAWeek, wantExchange: topo.Exchange, wantExpiration: "604800000"},
		{name: "expired window sets no ttl", notAfter: &past, wantExchange: topo.Exchange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(JobTypeWeeklyRecommendation, uuid.New(), nil)
			job.NotBefore, job.NotAfter = tt.notBefore, tt.notAfter

			exchange, msg, err := buildPublishing(job, topo, tt.delayed, now)
			if err != nil {
				t.Fatalf("buildPublishing() error = %v", err)
			}
			if exchange != tt.wantExchange {
				t.Errorf("exchange = %q, want %q", exchange, tt.wantExchange)
			}
			if msg.DeliveryMode != amqp.Persistent || msg.MessageId != job.ID.String() || !msg.Timestamp.Equal(now) {
				t.Errorf("publishing = %+v, want persistent, id %s, timestamp %v", msg, job.ID, now)
			}
			if got := msg.Headers["x-delay"]; got != tt.wantDelay {
				t.Errorf("x-delay = %v, want %v", got, tt.wantDelay)
			}
			if msg.Expiration != tt.wantExpiration {
				t.Errorf("expiration = %q, want %q", msg.Expiration, tt.wantExpiration)
			}
		})
	}
}

func TestDecodeJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"id":"6f1c1d2e-2f53-4c55-9a53-0f5c8f1a2b3c","type":"tag_extraction","user_id":"0b8e5c8a-1d7e-4b6f-8a3e-2c9d4e5f6a7b"}`, false},
		{"not json", `tag_extraction`, true},
		{"missing type", `{"id":"6f1c1d2e-2f53-4c55-9a53-0f5c8f1a2b3c"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job, err := decodeJob([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && job.Type != JobTypeTagExtraction {
				t.Errorf("Type = %q, want %q", job.Type, JobTypeTagExtraction)
			}
		})
	}
}

func TestPublishedBefore(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !publishedBefore(cutoff.Add(-time.Second), cutoff) {
		t.Error("older message should be purged")
	}
	if publishedBefore(cutoff.Add(time.Second), cutoff) {
		t.Error("younger message should be kept")
	}
	if publishedBefore(time.Time{}, cutoff) {
		t.Error("message without timestamp should be kept")
	}
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/config"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/services/ai"
)

func TestNewAIProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       config.AIConfig
		wantModel string
		wantErr   bool
	}{
		{
			name:      "openai with default model",
			cfg:       config.AIConfig{Provider: config.AIProviderOpenAI, OpenAIKey: "sk-test"},
			wantModel: ai.DefaultOpenAIModel,
		},
		{
			name:      "anthropic with explicit model",
			cfg:       config.AIConfig{Provider: config.AIProviderAnthropic, AnthropicKey: "sk-ant", Model: "claude-test"},
			wantModel: "claude-test",
		},
		{
			name:    "key for the other provider only",
			cfg:     config.AIConfig{Provider: config.AIProviderAnthropic, OpenAIKey: "sk-test"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     config.AIConfig{Provider: "llama", OpenAIKey: "sk-test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewAIProvider(tt.cfg, zap.NewNop(), false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAIProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Model() != tt.wantModel {
				t.Errorf("Model() = %q, want %q", p.Model(), tt.wantModel)
			}
		})
	}
}

func TestConnectQueue(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("connection refused")

	t.Run("first attempt succeeds", func(t *testing.T) {
		t.Parallel()
		calls := 0
		dial := func(url string) (*queue.RabbitMQQueue, error) {
			calls++
			return &queue.RabbitMQQueue{}, nil
		}
		q, err := ConnectQueue(context.Background(), dial, "amqp://localhost", 3, zap.NewNop())
		if err != nil || q == nil || calls != 1 {
			t.Errorf("q = %v, err = %v, calls = %d", q, err, calls)
		}
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		t.Parallel()
		dial := func(url string) (*queue.RabbitMQQueue, error) { return nil, dialErr }
		_, err := ConnectQueue(context.Background(), dial, "amqp://localhost", 1, zap.NewNop())
		if !errors.Is(err, dialErr) {
			t.Errorf("err = %v, want wrapped dial error", err)
		}
	})

	t.Run("context cancelled during backoff", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dial := func(url string) (*queue.RabbitMQQueue, error) { return nil, dialErr }
		_, err := ConnectQueue(ctx, dial, "amqp://localhost", 5, zap.NewNop())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second}
	for attempt, w := range want {
		if got := backoff(attempt); got != w {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestSetupTracing_Disabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []*config.Config{{}, {OTELEnabled: true}} {
		shutdown := SetupTracing(context.Background(), cfg, "crux-journal-api", zap.NewNop())
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	}
}

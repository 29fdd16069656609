package ai

import (
	"context"

	"go.uber.org/zap"
)

// Provider names accepted by the registry and AI_PROVIDER
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Operation names used for usage accounting and logging
const (
	OperationRecommendations = "recommendations"
	OperationTagExtraction   = "tag_extraction"
	OperationChat            = "chat"
)

// AIProvider is the interface for generative model providers
type AIProvider interface {
	// Complete sends a request and returns the whole response
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Stream sends a request and calls onDelta for each text fragment as it arrives.
	// The returned Completion holds the full text once the stream has ended cleanly.
	// If onDelta returns an error the stream is abandoned and that error is returned.
	Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (*Completion, error)

	// Model returns the configured model name
	Model() string
}

// ChatMessage represents a message in a conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral generation request
type CompletionRequest struct {
	Operation    string
	System       string
	Messages     []ChatMessage
	JSONResponse bool // ask for a single JSON object when the provider supports it
	MaxTokens    int64
	Temperature  float64
}

// Completion is a provider-neutral generation result
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage is token accounting for one call
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// TotalTokens returns prompt plus completion tokens
func (u Usage) TotalTokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// Add accumulates another call's usage
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// ProviderFactory creates an AI provider based on the provider type.
// Recognized config keys: api_key, model, base_url, debug.
type ProviderFactory func(config map[string]string, logger *zap.Logger) (AIProvider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
	logger    *zap.Logger
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry(logger *zap.Logger) *ProviderRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
		logger:    logger,
	}
}

// NewDefaultRegistry returns a registry with every built-in provider registered
func NewDefaultRegistry(logger *zap.Logger) *ProviderRegistry {
	r := NewProviderRegistry(logger)
	RegisterOpenAI(r)
	RegisterAnthropic(r)
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (AIProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config, r.logger)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

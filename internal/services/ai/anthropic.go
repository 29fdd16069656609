package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	// DefaultAnthropicModel is the default Claude model
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	// DefaultAnthropicMaxTokens is used when a request does not set MaxTokens
	DefaultAnthropicMaxTokens = 2048

	jsonOnlyInstruction = "Respond with a single valid JSON object only. Do not wrap it in markdown."
)

// AnthropicProvider implements the AIProvider interface using the Messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	log    callLogger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		log:    newCallLogger(logger, debugMode, ProviderAnthropic, model),
	}
}

// Model returns the configured model name
func (p *AnthropicProvider) Model() string {
	return p.model
}

func (p *AnthropicProvider) buildParams(req CompletionRequest) anthropic.MessageNewParams {
	system := req.System
	if req.JSONResponse {
		system = strings.TrimSpace(system + "\n\n" + jsonOnlyInstruction)
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

// Complete sends a message request and returns the concatenated text blocks
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := p.buildParams(req)
	p.log.request(ctx, req)

	start := time.Now()
	message, err := p.client.Messages.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		p.log.failure(ctx, req.Operation, err, latency)
		return nil, fmt.Errorf("%s request failed: %w", req.Operation, asAPIError(err))
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("message has no text block: %w", ErrEmptyResponse)
	}

	completion := &Completion{
		Content: text.String(),
		Model:   p.model,
		Usage: Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
	}
	p.log.response(ctx, req.Operation, completion, latency)
	return completion, nil
}

// Stream sends a streaming message request
func (p *AnthropicProvider) Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (*Completion, error) {
	params := p.buildParams(req)
	p.log.request(ctx, req)

	start := time.Now()
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer func() {
		_ = stream.Close()
	}()

	message := anthropic.Message{}
	var text strings.Builder
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("%s stream accumulate failed: %w", req.Operation, err)
		}

		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		textDelta, ok := delta.Delta.AsAny().(anthropic.TextDelta)
		if !ok || textDelta.Text == "" {
			continue
		}
		text.WriteString(textDelta.Text)
		if err := onDelta(textDelta.Text); err != nil {
			return nil, err
		}
	}
	latency := time.Since(start)
	if err := stream.Err(); err != nil {
		p.log.failure(ctx, req.Operation, err, latency)
		return nil, fmt.Errorf("%s stream failed: %w", req.Operation, asAPIError(err))
	}

	completion := &Completion{
		Content: text.String(),
		Model:   p.model,
		Usage: Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
	}
	p.log.response(ctx, req.Operation, completion, latency)
	return completion, nil
}

// RegisterAnthropic registers the Anthropic provider with the registry
func RegisterAnthropic(registry *ProviderRegistry) {
	registry.Register(ProviderAnthropic, func(config map[string]string, logger *zap.Logger) (AIProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("anthropic api_key is required")
		}

		debug := config["debug"] == "true"
		return NewAnthropicProvider(apiKey, config["base_url"], config["model"], logger, debug), nil
	})
}

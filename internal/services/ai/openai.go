package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is used when AI_MODEL is unset
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL can be swapped for any OpenAI-compatible endpoint
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultStreamTimeout bounds a whole streamed response
	DefaultStreamTimeout = 2 * time.Minute
)

// OpenAIProvider talks to the chat completions API
type OpenAIProvider struct {
	client openai.Client
	model  string
	log    callLogger
}

// NewOpenAIProvider builds a provider against the public endpoint without logging
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, "", model, nil, false)
}

// NewOpenAIProviderWithLogger builds a provider. Empty baseURL or model select the defaults.
// SDK retries are off: the coach pipelines own their retry budgets.
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	// Deadlines come from the caller's context. The client timeout only stops a hung stream.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultStreamTimeout}),
		option.WithMaxRetries(0),
	)
	return &OpenAIProvider{
		client: client,
		model:  model,
		log:    newCallLogger(logger, debugMode, ProviderOpenAI, model),
	}
}

// Model returns the configured model name
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

// Complete sends a chat completion request and returns the first choice
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := p.buildParams(req)
	p.log.request(ctx, req)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		p.log.failure(ctx, req.Operation, err, latency)
		return nil, fmt.Errorf("%s request failed: %w", req.Operation, asAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion has no choices: %w", ErrEmptyResponse)
	}

	completion := &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   p.model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	p.log.response(ctx, req.Operation, completion, latency)
	return completion, nil
}

// Stream sends a streaming chat completion request
func (p *OpenAIProvider) Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (*Completion, error) {
	params := p.buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	p.log.request(ctx, req)

	start := time.Now()
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() {
		_ = stream.Close()
	}()

	acc := openai.ChatCompletionAccumulator{}
	var content strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		content.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return nil, err
		}
	}
	latency := time.Since(start)
	if err := stream.Err(); err != nil {
		p.log.failure(ctx, req.Operation, err, latency)
		return nil, fmt.Errorf("%s stream failed: %w", req.Operation, asAPIError(err))
	}

	completion := &Completion{
		Content: content.String(),
		Model:   p.model,
		Usage: Usage{
			PromptTokens:     acc.Usage.PromptTokens,
			CompletionTokens: acc.Usage.CompletionTokens,
		},
	}
	p.log.response(ctx, req.Operation, completion, latency)
	return completion, nil
}

// EstimateTokens approximates a token count at four characters per token. It is only
// used to keep prompts inside a budget.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register(ProviderOpenAI, func(config map[string]string, logger *zap.Logger) (AIProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		debug := config["debug"] == "true"
		return NewOpenAIProviderWithLogger(apiKey, config["base_url"], config["model"], logger, debug), nil
	})
}

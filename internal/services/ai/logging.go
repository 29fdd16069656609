package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/request"
)

// callLogger emits debug events for provider calls when debug mode is on
type callLogger struct {
	logger   *zap.Logger
	debug    bool
	provider string
	model    string
}

func newCallLogger(logger *zap.Logger, debug bool, provider, model string) callLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return callLogger{logger: logger, debug: debug, provider: provider, model: model}
}

func (l callLogger) request(ctx context.Context, req CompletionRequest) {
	if !l.debug {
		return
	}
	userHash, climbID, requestID := callFields(ctx)
	promptLength := len(req.System)
	for _, m := range req.Messages {
		promptLength += len(m.Content)
	}
	l.logger.Debug("llm_api_request",
		zap.String("provider", l.provider),
		zap.String("operation", req.Operation),
		zap.String("model", l.model),
		zap.Int("prompt_length", promptLength),
		zap.Int("message_count", len(req.Messages)),
		zap.String("prompt_preview", preview(lastMessage(req.Messages))),
		zap.String("user_id", userHash),
		zap.String("climb_id", climbID),
		zap.String("request_id", requestID),
	)
}

func (l callLogger) failure(ctx context.Context, operation string, err error, latency time.Duration) {
	if !l.debug {
		return
	}
	l.logger.Debug("llm_api_error",
		zap.String("provider", l.provider),
		zap.String("operation", operation),
		zap.String("model", l.model),
		zap.String("error", logpkg.SanitizeError(err)),
		zap.String("request_id", request.RequestID(ctx)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
}

func (l callLogger) response(ctx context.Context, operation string, c *Completion, latency time.Duration) {
	if !l.debug {
		return
	}
	l.logger.Debug("llm_api_response",
		zap.String("provider", l.provider),
		zap.String("operation", operation),
		zap.String("model", l.model),
		zap.Int("response_length", len(c.Content)),
		zap.String("response_preview", preview(c.Content)),
		zap.Int64("prompt_tokens", c.Usage.PromptTokens),
		zap.Int64("completion_tokens", c.Usage.CompletionTokens),
		zap.String("request_id", request.RequestID(ctx)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
}

func lastMessage(messages []ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

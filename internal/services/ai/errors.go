package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

var (
	// ErrRateLimited matches provider 429s that clear on their own
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded matches exhausted account quota or billing
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrTimeout indicates a call did not finish within its deadline
	ErrTimeout = errors.New("generation timed out")
	// ErrEmptyResponse means the provider answered without any text to use
	ErrEmptyResponse = errors.New("provider returned no content")
)

// APIError is a provider HTTP failure normalized across SDKs.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Code       string
	Message    string
	// RetryAfter comes from the Retry-After header; zero when the provider sent none.
	RetryAfter  time.Duration
	IsPermanent bool
}

func (e *APIError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Is lets callers match ErrRateLimited and ErrQuotaExceeded with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.IsPermanent
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests && !e.IsPermanent
	}
	return false
}

// asAPIError converts SDK errors into *APIError and passes anything else through.
func asAPIError(err error) error {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		message := http.StatusText(anthropicErr.StatusCode)
		if anthropicErr.Request != nil && anthropicErr.Response != nil {
			message = anthropicErr.Error()
		}
		return &APIError{
			Provider:   ProviderAnthropic,
			StatusCode: anthropicErr.StatusCode,
			Message:    message,
			RetryAfter: retryAfter(anthropicErr.Response),
		}
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return &APIError{
			Provider:    ProviderOpenAI,
			StatusCode:  openaiErr.StatusCode,
			Type:        openaiErr.Type,
			Code:        openaiErr.Code,
			Message:     openaiErr.Message,
			RetryAfter:  retryAfter(openaiErr.Response),
			IsPermanent: openaiErr.Code == "insufficient_quota",
		}
	}
	return err
}

// retryAfter reads the delay-seconds form of Retry-After.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return err != nil && errors.Is(err, ErrRateLimited)
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	return err != nil && errors.Is(err, ErrQuotaExceeded)
}

// IsTimeoutError checks if an error is a deadline or network timeout
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransientError reports whether retrying the same request later may succeed
func IsTransientError(err error) bool {
	if err == nil || IsQuotaError(err) {
		return false
	}
	if IsTimeoutError(err) || IsRateLimitError(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout, apiErr.StatusCode == http.StatusConflict:
			return true
		case apiErr.StatusCode >= 500:
			return true
		}
		return false
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}

// RetryDelay is the wait before retry number attempt. Quota failures back off from an hour,
// rate limits from a minute (or the provider's Retry-After when longer), everything else
// from five seconds.
func RetryDelay(err error, attempt int) time.Duration {
	switch {
	case IsQuotaError(err):
		return backoff(time.Hour, 24*time.Hour, attempt)
	case IsRateLimitError(err):
		delay := backoff(time.Minute, 15*time.Minute, attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}
		return delay
	default:
		return backoff(5*time.Second, 5*time.Minute, attempt)
	}
}

func backoff(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		attempt = 10
	}
	delay := base << uint(attempt)
	if delay > limit {
		return limit
	}
	return delay
}

package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/crux-journal/internal/services/ai"
)

type completionResult struct {
	completion *ai.Completion
	err        error
}

// completeWithin races one completion against timeout. A timeout wraps ai.ErrTimeout;
// a cancelled caller gets ctx.Err() back.
func completeWithin(ctx context.Context, provider ai.AIProvider, req ai.CompletionRequest, timeout time.Duration) (*ai.Completion, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan completionResult, 1)
	go func() {
		c, err := provider.Complete(attemptCtx, req)
		done <- completionResult{completion: c, err: err}
	}()

	select {
	case res := <-done:
		return res.completion, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("attempt exceeded %s: %w", timeout, ai.ErrTimeout)
	}
}

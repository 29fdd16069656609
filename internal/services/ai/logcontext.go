package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/request"
)

// maxPreviewLength bounds prompt and response text in debug logs.
const maxPreviewLength = 10000

type contextKey string

const (
	userIDContextKey  contextKey = "user_id"
	climbIDContextKey contextKey = "climb_id"
)

// WithUserID tags provider calls made with ctx with the user they are for.
func WithUserID(ctx context.Context, userID fmt.Stringer) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// WithClimbID tags provider calls made with ctx with the climb they are about.
func WithClimbID(ctx context.Context, climbID fmt.Stringer) context.Context {
	return context.WithValue(ctx, climbIDContextKey, climbID)
}

func contextID(ctx context.Context, key contextKey) string {
	if id, ok := ctx.Value(key).(fmt.Stringer); ok {
		return id.String()
	}
	return ""
}

// HashUserID returns a short stable digest so log lines can be correlated without the raw ID.
func HashUserID(userID string) string {
	if userID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}

// preview is the loggable form of prompt or response text.
func preview(s string) string {
	return logpkg.SanitizeString(s, maxPreviewLength)
}

func callFields(ctx context.Context) (userHash, climbID, requestID string) {
	return HashUserID(contextID(ctx, userIDContextKey)), contextID(ctx, climbIDContextKey), request.RequestID(ctx)
}

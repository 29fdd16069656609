package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultRequestTimeout is the default request timeout (30 seconds)
	DefaultRequestTimeout = 30 * time.Second
)

// Timeout enforces a timeout on request handlers. Requests whose path starts with one of
// streamingPrefixes bypass it because http.TimeoutHandler buffers the response; those
// handlers bound their own upstream calls.
func Timeout(timeout time.Duration, streamingPrefixes ...string) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		buffered := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreaming(r.URL.Path, streamingPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			buffered.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isStreaming(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
